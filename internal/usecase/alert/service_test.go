package alert_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/geotag"
	sqliteRepo "github.com/Br0ck25/kynews-sub003/internal/infra/adapter/persistence/sqlite"
	"github.com/Br0ck25/kynews-sub003/internal/infra/db"
	"github.com/Br0ck25/kynews-sub003/internal/infra/notifier"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
	"github.com/Br0ck25/kynews-sub003/internal/usecase/alert"
)

const testCooldown = 6 * time.Hour

/* ───────── モック実装 ───────── */

// fakeChannel records every alert it is asked to deliver.
type fakeChannel struct {
	mu     sync.Mutex
	alerts []*notifier.Alert
}

func (f *fakeChannel) Notify(_ context.Context, a *notifier.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) sent() []*notifier.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*notifier.Alert(nil), f.alerts...)
}

/* ───────── フィクスチャ ───────── */

type alertFixture struct {
	svc     *alert.Service
	channel *fakeChannel
	items   repository.ItemRepository
	runs    repository.RunRepository
	log     repository.AlertLogRepository
	gaz     *geotag.Gazetteer
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.MigrateUp(conn))
	_, err = conn.Exec(`DELETE FROM feed_items`)
	require.NoError(t, err)
	_, err = conn.Exec(`DELETE FROM feeds`)
	require.NoError(t, err)
	return conn
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	conn := openTestDB(t)
	items := sqliteRepo.NewItemRepo(conn)
	feeds := sqliteRepo.NewFeedRepo(conn)
	runs := sqliteRepo.NewRunRepo(conn)
	alertLog := sqliteRepo.NewAlertLogRepo(conn)
	gaz, err := geotag.LoadGazetteer()
	require.NoError(t, err)

	require.NoError(t, feeds.Upsert(context.Background(), &entity.Feed{
		ID:          "test-feed",
		Name:        "Test Feed",
		URL:         "https://example.com/feed",
		Category:    "news",
		StateCode:   "KY",
		RegionScope: entity.RegionScopeKY,
		FetchMode:   entity.FetchModeRSS,
		Enabled:     true,
	}))

	channel := &fakeChannel{}
	svc := alert.NewService(items, feeds, runs, alertLog, gaz,
		[]notifier.Notifier{channel}, testCooldown, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &alertFixture{
		svc:     svc,
		channel: channel,
		items:   items,
		runs:    runs,
		log:     alertLog,
		gaz:     gaz,
	}
}

// coverEveryCounty attaches one recent item to every county so the
// coverage check sees no gaps.
func coverEveryCounty(t *testing.T, fx *alertFixture) {
	t.Helper()
	ctx := context.Background()
	_, err := fx.items.Upsert(ctx, &entity.Item{
		ID:          "statewide-roundup",
		Title:       "Statewide roundup",
		URL:         "https://example.com/articles/roundup",
		RegionScope: entity.RegionScopeKY,
		FetchedAt:   time.Now().UTC(),
		Hash:        "hash-roundup",
	}, "test-feed")
	require.NoError(t, err)

	locations := make([]entity.ItemLocation, 0, fx.gaz.CountyCount())
	for _, county := range fx.gaz.Counties() {
		locations = append(locations, entity.ItemLocation{
			ItemID:    "statewide-roundup",
			StateCode: "KY",
			County:    county,
		})
	}
	require.NoError(t, fx.items.ReplaceLocations(ctx, "statewide-roundup", locations))
}

/* ───────── カバレッジアラート ───────── */

// emptyDBCoverageKey is the key a fully uncovered state produces: the
// first five counties alphabetically.
const emptyDBCoverageKey = "coverage-gap-Adair-Allen-Anderson-Ballard-Barren"

func TestRunCoverageCheck_FiresOnEmptyDatabase(t *testing.T) {
	fx := newAlertFixture(t)

	require.NoError(t, fx.svc.RunCoverageCheck(context.Background()))

	sent := fx.channel.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, emptyDBCoverageKey, sent[0].Key)
	assert.Equal(t, fmt.Sprintf("%d Kentucky counties without coverage", fx.gaz.CountyCount()), sent[0].Title)
	assert.Equal(t, notifier.SeverityWarning, sent[0].Severity)
	assert.Contains(t, sent[0].Body, "Adair")
	// 本文は先頭20郡で打ち切られる
	assert.Contains(t, sent[0].Body, "more.")
}

func TestRunCoverageCheck_QuietWhenEveryCountyCovered(t *testing.T) {
	fx := newAlertFixture(t)
	coverEveryCounty(t, fx)

	require.NoError(t, fx.svc.RunCoverageCheck(context.Background()))
	assert.Empty(t, fx.channel.sent())
}

func TestRunCoverageCheck_SuppressedWithinCooldown(t *testing.T) {
	fx := newAlertFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.log.RecordFired(ctx, emptyDBCoverageKey,
		time.Now().UTC().Add(-time.Hour)))

	require.NoError(t, fx.svc.RunCoverageCheck(ctx))
	assert.Empty(t, fx.channel.sent())
}

func TestRunCoverageCheck_FiresAgainAfterCooldown(t *testing.T) {
	fx := newAlertFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.log.RecordFired(ctx, emptyDBCoverageKey,
		time.Now().UTC().Add(-testCooldown-time.Minute)))

	require.NoError(t, fx.svc.RunCoverageCheck(ctx))
	assert.Len(t, fx.channel.sent(), 1)
}

/* ───────── フィード障害アラート ───────── */

func recordFeedErrors(t *testing.T, runs repository.RunRepository, runID, feedID string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		require.NoError(t, runs.RecordFeedMetric(context.Background(), &entity.FeedRunMetric{
			RunID:        runID,
			FeedID:       feedID,
			Status:       entity.FeedRunError,
			ErrorMessage: "connection refused",
		}))
	}
}

func TestRunFeedFailureCheck_FiresAtThreeErrors(t *testing.T) {
	fx := newAlertFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.runs.StartRun(ctx, &entity.FetchRun{
		ID:        "run-1",
		Source:    "ingest",
		Status:    entity.RunStatusOK,
		StartedAt: time.Now().UTC().Add(-time.Hour),
	}))
	recordFeedErrors(t, fx.runs, "run-1", "feed-a", 3)
	recordFeedErrors(t, fx.runs, "run-1", "feed-b", 2)

	require.NoError(t, fx.svc.RunFeedFailureCheck(ctx))

	sent := fx.channel.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "1 feeds failing repeatedly", sent[0].Title)
	assert.Contains(t, sent[0].Body, "feed-a (3 errors)")
	assert.NotContains(t, sent[0].Body, "feed-b")
}

func TestRunFeedFailureCheck_IgnoresErrorsOutsideWindow(t *testing.T) {
	fx := newAlertFixture(t)
	ctx := context.Background()

	// Errors from a run that started four hours ago fall outside the
	// three-hour window.
	require.NoError(t, fx.runs.StartRun(ctx, &entity.FetchRun{
		ID:        "run-old",
		Source:    "ingest",
		Status:    entity.RunStatusOK,
		StartedAt: time.Now().UTC().Add(-4 * time.Hour),
	}))
	recordFeedErrors(t, fx.runs, "run-old", "feed-a", 5)

	require.NoError(t, fx.svc.RunFeedFailureCheck(ctx))
	assert.Empty(t, fx.channel.sent())
}

/* ───────── 速報アラート ───────── */

func TestBreakingItem_FiresOncePerItem(t *testing.T) {
	fx := newAlertFixture(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(4 * time.Hour)
	item := &entity.Item{
		ID:                "tornado-warning",
		Title:             "Tornado warning issued for Warren County",
		URL:               "https://example.com/articles/tornado",
		AlertLevel:        entity.AlertLevelEmergency,
		IsBreaking:        true,
		BreakingExpiresAt: &expires,
		AISummary:         "A tornado warning is in effect until 8 PM.",
	}

	require.NoError(t, fx.svc.BreakingItem(ctx, item))
	require.NoError(t, fx.svc.BreakingItem(ctx, item))

	sent := fx.channel.sent()
	require.Len(t, sent, 1, "同じ記事のアラートは一度だけ")
	assert.Equal(t, "breaking-tornado-warning", sent[0].Key)
	assert.Equal(t, notifier.SeverityEmergency, sent[0].Severity)
	assert.Equal(t, "A tornado warning is in effect until 8 PM.", sent[0].Body)
	require.Len(t, sent[0].Links, 1)
	assert.Equal(t, "https://example.com/articles/tornado", sent[0].Links[0].URL)
}

func TestBreakingItem_SeverityFollowsAlertLevel(t *testing.T) {
	fx := newAlertFixture(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(4 * time.Hour)
	require.NoError(t, fx.svc.BreakingItem(ctx, &entity.Item{
		ID:                "school-shooting-update",
		Title:             "BREAKING: Police respond to reports of shots fired",
		URL:               "https://example.com/articles/shots",
		AlertLevel:        entity.AlertLevelBreaking,
		IsBreaking:        true,
		BreakingExpiresAt: &expires,
	}))

	sent := fx.channel.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notifier.SeverityBreaking, sent[0].Severity)
	// AI要約がなければタイトルが本文になる
	assert.Equal(t, "BREAKING: Police respond to reports of shots fired", sent[0].Body)
}
