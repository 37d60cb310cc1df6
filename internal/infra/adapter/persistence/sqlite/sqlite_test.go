package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/infra/db"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// openTestDB returns a migrated in-memory database. The connection pool
// is pinned to one connection: each :memory: connection would otherwise
// get its own empty database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.MigrateUp(conn))

	// シードデータを削除してテストを独立させる
	_, err = conn.Exec(`DELETE FROM feed_items`)
	require.NoError(t, err)
	_, err = conn.Exec(`DELETE FROM feeds`)
	require.NoError(t, err)

	return conn
}

func testFeed(id string) *entity.Feed {
	return &entity.Feed{
		ID:                id,
		Name:              "Pike County News",
		URL:               "https://example.com/" + id + "/feed",
		Category:          "news",
		StateCode:         "KY",
		RegionScope:       entity.RegionScopeKY,
		FetchMode:         entity.FetchModeRSS,
		DefaultCounty:     "Pike",
		DefaultCountyMode: entity.CountyModeAuthoritative,
		Enabled:           true,
	}
}

func testItem(id string, fetchedAt time.Time) *entity.Item {
	published := fetchedAt.Add(-time.Hour)
	return &entity.Item{
		ID:          id,
		Title:       "Flooding closes KY 80 near Hazard",
		URL:         "https://example.com/articles/" + id,
		GUID:        "guid-" + id,
		RegionScope: entity.RegionScopeKY,
		PublishedAt: &published,
		FetchedAt:   fetchedAt,
		Summary:     "State crews closed KY 80 after overnight flooding.",
		Hash:        "hash-" + id,
	}
}

func mustUpsertItem(t *testing.T, repo repository.ItemRepository, item *entity.Item, feedID string) {
	t.Helper()
	outcome, err := repo.Upsert(context.Background(), item, feedID)
	require.NoError(t, err)
	require.NotEmpty(t, outcome)
}
