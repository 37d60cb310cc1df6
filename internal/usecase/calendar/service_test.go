package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteRepo "github.com/Br0ck25/kynews-sub003/internal/infra/adapter/persistence/sqlite"
	"github.com/Br0ck25/kynews-sub003/internal/infra/db"
	"github.com/Br0ck25/kynews-sub003/internal/infra/fetcher"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.MigrateUp(conn))
	return conn
}

func newTestService(t *testing.T, districts map[string]string) (*Service, repository.SchoolEventRepository) {
	t.Helper()
	events := sqliteRepo.NewSchoolEventRepo(openTestDB(t))
	client := fetcher.NewClient("test-agent", 5*time.Second, false)

	svc, err := NewService(events, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	svc.districts = districts
	return svc, events
}

func icsDocument(now time.Time) string {
	future := now.Add(48 * time.Hour).Format("20060102T150405Z")
	later := now.Add(72 * time.Hour).Format("20060102T150405Z")
	ancient := now.Add(-120 * 24 * time.Hour).Format("20060102T150405Z")
	return fmt.Sprintf(`BEGIN:VCALENDAR
VERSION:2.0
BEGIN:VEVENT
UID:evt-board-meeting
SUMMARY:Board of Education Meeting
LOCATION:Central Office
DTSTART:%s
END:VEVENT
BEGIN:VEVENT
SUMMARY:Fall Break
DTSTART:%s
END:VEVENT
BEGIN:VEVENT
UID:evt-ancient
SUMMARY:Last Year's Graduation
DTSTART:%s
END:VEVENT
END:VCALENDAR`, future, later, ancient)
}

func TestNewService_ParsesEmbeddedDistricts(t *testing.T) {
	events := sqliteRepo.NewSchoolEventRepo(openTestDB(t))
	client := fetcher.NewClient("test-agent", 5*time.Second, false)

	svc, err := NewService(events, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.NotEmpty(t, svc.districts)
	assert.Contains(t, svc.districts, "Pike")
	assert.Contains(t, svc.districts, "Fayette")
}

func TestRun_SyncsDistrictCalendar(t *testing.T) {
	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/calendar.ics" {
			w.Header().Set("Content-Type", "text/calendar")
			_, _ = w.Write([]byte(icsDocument(now)))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	svc, events := newTestService(t, map[string]string{"Pike": server.URL})

	stats, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Districts)
	assert.Equal(t, 1, stats.Found)
	// The 120-day-old event falls outside the age cutoff.
	assert.Equal(t, 2, stats.Events)

	list, err := events.ListByCounty(context.Background(), "Pike", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "evt-board-meeting", list[0].UID)
	assert.Equal(t, "Board of Education Meeting", list[0].Title)
	assert.Equal(t, "Central Office", list[0].Location)
	assert.Equal(t, "Pike", list[0].County)

	// UIDのないイベントは複合キーで識別される
	assert.Contains(t, list[1].UID, "Pike|")
	assert.Contains(t, list[1].UID, "Fall Break")
}

func TestRun_SkipsDistrictsWithoutACalendar(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	svc, _ := newTestService(t, map[string]string{"Knott": server.URL})

	stats, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Districts)
	assert.Zero(t, stats.Found)
	assert.Zero(t, stats.Events)
}

func TestRun_TriesFallbackPaths(t *testing.T) {
	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only the legacy CMS path answers.
		if r.URL.Path == "/common/pages/DisplayCalendar.aspx" && r.URL.Query().Get("format") == "ics" {
			_, _ = w.Write([]byte(icsDocument(now)))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	svc, _ := newTestService(t, map[string]string{"Boyd": server.URL})

	stats, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Found)
	assert.Equal(t, 2, stats.Events)
}

func TestRun_ReusesUIDAcrossSyncs(t *testing.T) {
	now := time.Now().UTC()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/calendar.ics" {
			_, _ = w.Write([]byte(icsDocument(now)))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	svc, events := newTestService(t, map[string]string{"Pike": server.URL})

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	_, err = svc.Run(context.Background())
	require.NoError(t, err)

	list, err := events.ListByCounty(context.Background(), "Pike", 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
