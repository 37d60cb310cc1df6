package enrich_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Br0ck25/kynews-sub003/internal/config"
	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/geotag"
	sqliteRepo "github.com/Br0ck25/kynews-sub003/internal/infra/adapter/persistence/sqlite"
	"github.com/Br0ck25/kynews-sub003/internal/infra/db"
	"github.com/Br0ck25/kynews-sub003/internal/infra/summarizer"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
	"github.com/Br0ck25/kynews-sub003/internal/usecase/enrich"
)

/* ───────── モック実装 ───────── */

// fakeAlerter captures breaking-news hook invocations.
type fakeAlerter struct {
	mu    sync.Mutex
	items []*entity.Item
}

func (f *fakeAlerter) BreakingItem(_ context.Context, item *entity.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return nil
}

func (f *fakeAlerter) fired() []*entity.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.Item(nil), f.items...)
}

/* ───────── フィクスチャ ───────── */

type enrichFixture struct {
	svc     *enrich.Service
	items   repository.ItemRepository
	feeds   repository.FeedRepository
	queue   repository.QueueRepository
	bills   repository.BillRepository
	alerter *fakeAlerter
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

func testConfig() *config.PipelineConfig {
	return &config.PipelineConfig{
		DBPath:            ":memory:",
		UserAgent:         "test-agent",
		MaxFeedsPerRun:    10,
		MaxItemsPerFeed:   30,
		FeedTimeout:       5 * time.Second,
		ArticleTimeout:    5 * time.Second,
		WorkerBatch:       10,
		WorkerConcurrency: 2,
		AlertCooldown:     time.Hour,
		AlertOnBreaking:   true,
	}
}

func newEnrichFixture(t *testing.T) *enrichFixture {
	t.Helper()
	conn := openTestDB(t)
	items := sqliteRepo.NewItemRepo(conn)
	queue := sqliteRepo.NewQueueRepo(conn)
	billRepo := sqliteRepo.NewBillRepo(conn)
	feeds := sqliteRepo.NewFeedRepo(conn)

	require.NoError(t, feeds.Upsert(context.Background(), &entity.Feed{
		ID:          "mountain-times",
		Name:        "Mountain Times",
		URL:         "https://example.com/feed",
		Category:    "news",
		StateCode:   "KY",
		RegionScope: entity.RegionScopeKY,
		FetchMode:   entity.FetchModeRSS,
		Enabled:     true,
	}))

	gaz, err := geotag.LoadGazetteer()
	require.NoError(t, err)

	alerter := &fakeAlerter{}
	// article fetcher nil: 本文はingest時の保存値にフォールバックする
	svc := enrich.NewService(items, feeds, queue, billRepo, nil, summarizer.NewNoOp(),
		geotag.NewTagger(gaz), alerter, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &enrichFixture{svc: svc, items: items, feeds: feeds, queue: queue, bills: billRepo, alerter: alerter}
}

// longBody builds a body comfortably past the 50-word acceptance floor.
func longBody(lead string) string {
	filler := strings.Repeat("The fiscal court discussed road repairs and approved the budget amendment after public comment. ", 5)
	return lead + " " + filler
}

func enqueueItem(t *testing.T, fx *enrichFixture, id, title, content string) {
	t.Helper()
	enqueueItemOnFeed(t, fx, "mountain-times", id, title, content)
}

func enqueueItemOnFeed(t *testing.T, fx *enrichFixture, feedID, id, title, content string) {
	t.Helper()
	ctx := context.Background()
	_, err := fx.items.Upsert(ctx, &entity.Item{
		ID:          id,
		Title:       title,
		URL:         "https://example.com/articles/" + id,
		RegionScope: entity.RegionScopeKY,
		FetchedAt:   time.Now().UTC(),
		Content:     content,
		Hash:        "hash-" + id,
	}, feedID)
	require.NoError(t, err)
	require.NoError(t, fx.queue.Enqueue(ctx, id))
}

/* ───────── テスト ───────── */

func TestRun_EnrichesPendingItem(t *testing.T) {
	fx := newEnrichFixture(t)
	ctx := context.Background()

	enqueueItem(t, fx, "court-story",
		"Pike County fiscal court approves budget",
		longBody("The Pike County fiscal court met Tuesday in Pikeville."))

	require.NoError(t, fx.svc.Run(ctx))

	counts, err := fx.queue.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entity.QueueDone])

	item, err := fx.items.Get(ctx, "court-story")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.NotEmpty(t, item.MinHash)
	assert.NotEmpty(t, item.AISummary)
	assert.False(t, item.IsDuplicate)

	// 本文中の郡名が位置情報として保存される
	byCounty, err := fx.items.CountsByCountySince(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, byCounty["Pike"])
}

func TestRun_RejectsShortItems(t *testing.T) {
	fx := newEnrichFixture(t)
	ctx := context.Background()

	enqueueItem(t, fx, "brief-note",
		"Road closure announced", "Main Street closed Tuesday.")

	require.NoError(t, fx.svc.Run(ctx))

	counts, err := fx.queue.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entity.QueueRejectedShort])

	item, err := fx.items.Get(ctx, "brief-note")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Empty(t, item.AISummary)
}

func TestRun_MarksNearDuplicates(t *testing.T) {
	fx := newEnrichFixture(t)
	ctx := context.Background()

	body := longBody("A water main break left half of Letcher County without service Thursday morning.")
	enqueueItem(t, fx, "original-story", "Water main break hits Letcher County", body)
	require.NoError(t, fx.svc.Run(ctx))

	// 同じ内容の記事が別ソースから届く
	enqueueItem(t, fx, "wire-copy", "Water main break hits Letcher County", body)
	require.NoError(t, fx.svc.Run(ctx))

	dup, err := fx.items.Get(ctx, "wire-copy")
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.True(t, dup.IsDuplicate)
	assert.Equal(t, "original-story", dup.CanonicalItemID)

	canonical, err := fx.items.Get(ctx, "original-story")
	require.NoError(t, err)
	assert.False(t, canonical.IsDuplicate)
}

func TestRun_RetagKeepsFeedDefaultCounty(t *testing.T) {
	fx := newEnrichFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.feeds.Upsert(ctx, &entity.Feed{
		ID:                "perry-herald",
		Name:              "Perry County Herald",
		URL:               "https://example.com/perry/feed",
		Category:          "news",
		StateCode:         "KY",
		RegionScope:       entity.RegionScopeKY,
		FetchMode:         entity.FetchModeRSS,
		DefaultCounty:     "Perry",
		DefaultCountyMode: entity.CountyModeAuthoritative,
		Enabled:           true,
	}))

	// 本文は別の郡に言及するが、フィード既定のPerryは残り続ける
	enqueueItemOnFeed(t, fx, "perry-herald", "mutual-aid",
		"Local crews join flood response",
		longBody("Crews from Fayette County arrived Tuesday, and officials in Fayette County coordinated shelters."))

	require.NoError(t, fx.svc.Run(ctx))

	byCounty, err := fx.items.CountsByCountySince(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, byCounty["Perry"])
	assert.Equal(t, 1, byCounty["Fayette"])
}

func TestRun_CanonicalIsNeverADuplicate(t *testing.T) {
	fx := newEnrichFixture(t)
	ctx := context.Background()

	body := longBody("A rockslide closed both lanes of US 119 near the Pine Mountain overlook Monday.")
	for _, id := range []string{"first-report", "wire-copy", "late-pickup"} {
		enqueueItem(t, fx, id, "Rockslide closes US 119 at Pine Mountain", body)
		require.NoError(t, fx.svc.Run(ctx))
	}

	// 3件目の正規記事は、重複記事ではなく元記事を指す
	late, err := fx.items.Get(ctx, "late-pickup")
	require.NoError(t, err)
	require.NotNil(t, late)
	assert.True(t, late.IsDuplicate)
	assert.Equal(t, "first-report", late.CanonicalItemID)

	canonical, err := fx.items.Get(ctx, late.CanonicalItemID)
	require.NoError(t, err)
	assert.False(t, canonical.IsDuplicate)
}

func TestRun_FiresBreakingAlert(t *testing.T) {
	fx := newEnrichFixture(t)
	ctx := context.Background()

	enqueueItem(t, fx, "flood-alert",
		"BREAKING: Flash flooding closes KY 80 in Knott County",
		longBody("Emergency crews evacuated residents along Troublesome Creek in Knott County overnight."))

	require.NoError(t, fx.svc.Run(ctx))

	fired := fx.alerter.fired()
	require.Len(t, fired, 1)
	assert.Equal(t, "flood-alert", fired[0].ID)
	assert.True(t, fired[0].IsBreaking)
	require.NotNil(t, fired[0].BreakingExpiresAt)

	item, err := fx.items.Get(ctx, "flood-alert")
	require.NoError(t, err)
	assert.True(t, item.IsBreaking)
	assert.NotNil(t, item.BreakingExpiresAt)
}

func TestRun_SkipsAlertForOrdinaryNews(t *testing.T) {
	fx := newEnrichFixture(t)
	ctx := context.Background()

	enqueueItem(t, fx, "calm-story",
		"Library announces summer reading program",
		longBody("The Perry County public library opens registration for its summer reading program next week."))

	require.NoError(t, fx.svc.Run(ctx))
	assert.Empty(t, fx.alerter.fired())
}

func TestRun_LinksRegisteredBills(t *testing.T) {
	fx := newEnrichFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.bills.Upsert(ctx, &entity.KyBill{
		Number:  "SB 150",
		Title:   "AN ACT relating to education",
		Session: "2026RS",
	}))

	enqueueItem(t, fx, "bill-story",
		"What SB 150 means for Kentucky schools",
		longBody("Lawmakers in Frankfort debated SB 150 for a third straight day."))

	require.NoError(t, fx.svc.Run(ctx))

	linked, err := fx.bills.LinkedBills(ctx, "bill-story")
	require.NoError(t, err)
	assert.Equal(t, []string{"SB 150"}, linked)

	item, err := fx.items.Get(ctx, "bill-story")
	require.NoError(t, err)
	assert.Contains(t, item.CategoriesJSON, "legislature")
}

func TestRun_EmptyQueueIsANoOp(t *testing.T) {
	fx := newEnrichFixture(t)
	require.NoError(t, fx.svc.Run(context.Background()))
	assert.Empty(t, fx.alerter.fired())
}
