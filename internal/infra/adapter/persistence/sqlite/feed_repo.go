package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

const feedColumns = `id, name, url, category, state_code, region_scope, fetch_mode,
scraper_id, default_county, default_county_mode, enabled, is_bing_fallback,
etag, last_modified, last_checked_at`

const feedColumnsPrefixed = `f.id, f.name, f.url, f.category, f.state_code, f.region_scope, f.fetch_mode,
f.scraper_id, f.default_county, f.default_county_mode, f.enabled, f.is_bing_fallback,
f.etag, f.last_modified, f.last_checked_at`

// FeedRepo implements repository.FeedRepository using SQLite.
type FeedRepo struct{ db *sql.DB }

// NewFeedRepo creates a new SQLite-backed feed repository.
func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

func scanFeed(scan func(dest ...interface{}) error) (*entity.Feed, error) {
	var feed entity.Feed
	var category, scraperID, defaultCounty, etag, lastModified sql.NullString
	var lastCheckedAt sql.NullTime

	err := scan(
		&feed.ID, &feed.Name, &feed.URL, &category, &feed.StateCode,
		&feed.RegionScope, &feed.FetchMode, &scraperID, &defaultCounty,
		&feed.DefaultCountyMode, &feed.Enabled, &feed.IsBingFallback,
		&etag, &lastModified, &lastCheckedAt,
	)
	if err != nil {
		return nil, err
	}

	feed.Category = category.String
	feed.ScraperID = scraperID.String
	feed.DefaultCounty = defaultCounty.String
	feed.ETag = etag.String
	feed.LastModified = lastModified.String
	if lastCheckedAt.Valid {
		t := lastCheckedAt.Time
		feed.LastCheckedAt = &t
	}
	return &feed, nil
}

func (repo *FeedRepo) queryFeeds(ctx context.Context, method, query string, args ...interface{}) ([]*entity.Feed, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: QueryContext: %w", method, err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 50)
	for rows.Next() {
		feed, err := scanFeed(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", method, err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows.Err: %w", method, err)
	}
	return feeds, nil
}

// ListDue returns enabled feeds stalest first. Feeds never checked sort
// before everything else so new sources get picked up immediately.
func (repo *FeedRepo) ListDue(ctx context.Context, limit int) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + `
FROM feeds
WHERE enabled = 1
ORDER BY
	CASE WHEN last_checked_at IS NULL THEN 0 ELSE 1 END ASC,
	last_checked_at ASC,
	id ASC
LIMIT ?
`
	return repo.queryFeeds(ctx, "ListDue", query, limit)
}

func (repo *FeedRepo) ListEnabled(ctx context.Context) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE enabled = 1 ORDER BY id`
	return repo.queryFeeds(ctx, "ListEnabled", query)
}

func (repo *FeedRepo) ListByFetchMode(ctx context.Context, mode string) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE enabled = 1 AND fetch_mode = ? ORDER BY id`
	return repo.queryFeeds(ctx, "ListByFetchMode", query, mode)
}

func (repo *FeedRepo) ListForItem(ctx context.Context, itemID string) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumnsPrefixed + `
FROM feeds f
JOIN feed_items fi ON fi.feed_id = f.id
WHERE fi.item_id = ?
ORDER BY f.id
`
	return repo.queryFeeds(ctx, "ListForItem", query, itemID)
}

func (repo *FeedRepo) Get(ctx context.Context, id string) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = ? LIMIT 1`

	row := repo.db.QueryRowContext(ctx, query, id)
	feed, err := scanFeed(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return feed, nil
}

// Upsert inserts or updates the feed's configuration columns. The
// conditional-fetch validators are left alone so reseeding never resets
// polling state.
func (repo *FeedRepo) Upsert(ctx context.Context, feed *entity.Feed) error {
	const query = `
INSERT INTO feeds
(id, name, url, category, state_code, region_scope, fetch_mode,
 scraper_id, default_county, default_county_mode, enabled, is_bing_fallback)
VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name                = excluded.name,
	url                 = excluded.url,
	category            = excluded.category,
	state_code          = excluded.state_code,
	region_scope        = excluded.region_scope,
	fetch_mode          = excluded.fetch_mode,
	scraper_id          = excluded.scraper_id,
	default_county      = excluded.default_county,
	default_county_mode = excluded.default_county_mode,
	enabled             = excluded.enabled,
	is_bing_fallback    = excluded.is_bing_fallback
`
	if _, err := repo.db.ExecContext(ctx, query,
		feed.ID, feed.Name, feed.URL, feed.Category, feed.StateCode,
		feed.RegionScope, feed.FetchMode, feed.ScraperID, feed.DefaultCounty,
		feed.DefaultCountyMode, feed.Enabled, feed.IsBingFallback,
	); err != nil {
		return fmt.Errorf("Upsert: ExecContext: %w", err)
	}
	return nil
}

func (repo *FeedRepo) SaveValidators(ctx context.Context, id, etag, lastModified string, checkedAt time.Time) error {
	const query = `
UPDATE feeds SET
	etag            = NULLIF(?, ''),
	last_modified   = NULLIF(?, ''),
	last_checked_at = ?
WHERE id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, etag, lastModified, checkedAt, id); err != nil {
		return fmt.Errorf("SaveValidators: ExecContext: %w", err)
	}
	return nil
}

// PromoteToRSS switches a scrape feed to rss mode at the discovered
// feed URL. The validators are cleared: they belonged to the HTML page.
func (repo *FeedRepo) PromoteToRSS(ctx context.Context, id, feedURL string) error {
	const query = `
UPDATE feeds SET
	fetch_mode    = 'rss',
	url           = ?,
	scraper_id    = NULL,
	etag          = NULL,
	last_modified = NULL
WHERE id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, feedURL, id); err != nil {
		return fmt.Errorf("PromoteToRSS: ExecContext: %w", err)
	}
	return nil
}

func (repo *FeedRepo) CoveredCounties(ctx context.Context) ([]string, error) {
	const query = `
SELECT DISTINCT default_county
FROM feeds
WHERE enabled = 1
  AND is_bing_fallback = 0
  AND default_county IS NOT NULL AND default_county != ''
ORDER BY default_county
`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CoveredCounties: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counties := make([]string, 0, 120)
	for rows.Next() {
		var county string
		if err := rows.Scan(&county); err != nil {
			return nil, fmt.Errorf("CoveredCounties: Scan: %w", err)
		}
		counties = append(counties, county)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CoveredCounties: rows.Err: %w", err)
	}
	return counties, nil
}
