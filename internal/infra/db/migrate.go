package db

import (
	"database/sql"
	_ "embed"
)

//go:embed seeds/feeds.sql
var seedFeedsSQL string

func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feeds (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL,
    url                 TEXT NOT NULL UNIQUE,
    category            TEXT,
    state_code          TEXT NOT NULL DEFAULT 'KY',
    region_scope        TEXT NOT NULL DEFAULT 'ky',
    fetch_mode          TEXT NOT NULL DEFAULT 'rss',
    scraper_id          TEXT,
    default_county      TEXT,
    default_county_mode TEXT NOT NULL DEFAULT 'authoritative',
    enabled             INTEGER NOT NULL DEFAULT 1,
    is_bing_fallback    INTEGER NOT NULL DEFAULT 0,
    etag                TEXT,
    last_modified       TEXT,
    last_checked_at     TIMESTAMP
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS items (
    id                    TEXT PRIMARY KEY,
    title                 TEXT NOT NULL,
    url                   TEXT NOT NULL,
    guid                  TEXT,
    author                TEXT,
    region_scope          TEXT NOT NULL DEFAULT 'ky',
    published_at          TIMESTAMP,
    fetched_at            TIMESTAMP NOT NULL,
    summary               TEXT,
    content               TEXT,
    image_url             TEXT,
    body_text             TEXT,
    word_count            INTEGER NOT NULL DEFAULT 0,
    hash                  TEXT NOT NULL DEFAULT '',
    minhash               TEXT,
    is_duplicate          INTEGER NOT NULL DEFAULT 0,
    canonical_item_id     TEXT,
    is_paywalled          INTEGER NOT NULL DEFAULT 0,
    paywall_confidence    INTEGER NOT NULL DEFAULT 0,
    paywall_signals       TEXT,
    paywall_deprioritized INTEGER NOT NULL DEFAULT 0,
    is_breaking           INTEGER NOT NULL DEFAULT 0,
    alert_level           TEXT,
    sentiment             TEXT,
    breaking_expires_at   TIMESTAMP,
    ai_summary            TEXT,
    ai_meta_description   TEXT,
    categories_json       TEXT,
    is_facebook           INTEGER NOT NULL DEFAULT 0,
    tags                  TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_items (
    feed_id TEXT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    PRIMARY KEY (feed_id, item_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS item_locations (
    item_id    TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    state_code TEXT NOT NULL,
    county     TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (item_id, state_code, county)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS item_categories (
    item_id  TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    PRIMARY KEY (item_id, category)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ingestion_queue (
    item_id    TEXT PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
    status     TEXT NOT NULL DEFAULT 'pending',
    attempts   INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS ky_bills (
    number     TEXT PRIMARY KEY,
    title      TEXT,
    session    TEXT,
    url        TEXT,
    updated_at TIMESTAMP
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS article_bills (
    item_id     TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    bill_number TEXT NOT NULL REFERENCES ky_bills(number) ON DELETE CASCADE,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (item_id, bill_number)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS school_events (
    uid      TEXT PRIMARY KEY,
    county   TEXT NOT NULL,
    title    TEXT NOT NULL,
    start_at TIMESTAMP NOT NULL,
    end_at   TIMESTAMP,
    location TEXT,
    url      TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS alert_log (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    alert_key TEXT NOT NULL,
    fired_at  TIMESTAMP NOT NULL
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS fetch_errors (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    feed_id TEXT,
    at      TIMESTAMP NOT NULL,
    error   TEXT NOT NULL
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS fetch_runs (
    id           TEXT PRIMARY KEY,
    source       TEXT NOT NULL,
    status       TEXT NOT NULL,
    started_at   TIMESTAMP NOT NULL,
    finished_at  TIMESTAMP,
    details_json TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_run_metrics (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id         TEXT NOT NULL REFERENCES fetch_runs(id) ON DELETE CASCADE,
    feed_id        TEXT NOT NULL,
    status         TEXT NOT NULL,
    http_status    INTEGER NOT NULL DEFAULT 0,
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    items_seen     INTEGER NOT NULL DEFAULT 0,
    items_upserted INTEGER NOT NULL DEFAULT 0,
    error_message  TEXT
)`); err != nil {
		return err
	}

	// パフォーマンス最適化: インデックス追加
	indexes := []string{
		// ORDER BY published_at DESC で使用(ランキングクエリで使用)
		`CREATE INDEX IF NOT EXISTS idx_items_published_at ON items(published_at DESC)`,
		// ランキングのタイブレーク用
		`CREATE INDEX IF NOT EXISTS idx_items_fetched_at ON items(fetched_at DESC)`,
		// 重複検出の署名ウィンドウ読み取り用
		`CREATE INDEX IF NOT EXISTS idx_items_minhash ON items(minhash) WHERE minhash IS NOT NULL AND minhash != ''`,
		// 速報ティッカー用
		`CREATE INDEX IF NOT EXISTS idx_items_breaking ON items(is_breaking, breaking_expires_at) WHERE is_breaking = 1`,
		`CREATE INDEX IF NOT EXISTS idx_queue_status_created ON ingestion_queue(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_status_updated ON ingestion_queue(status, updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_item_locations_state_county ON item_locations(state_code, county)`,
		`CREATE INDEX IF NOT EXISTS idx_item_categories_category ON item_categories(category)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_items_item_id ON feed_items(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feeds_enabled ON feeds(enabled) WHERE enabled = 1`,
		`CREATE INDEX IF NOT EXISTS idx_feeds_last_checked ON feeds(last_checked_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_log_key_fired ON alert_log(alert_key, fired_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_errors_at ON fetch_errors(at)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_run_metrics_run ON feed_run_metrics(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_run_metrics_feed_status ON feed_run_metrics(feed_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_school_events_county_start ON school_events(county, start_at)`,
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// シードデータの投入(重複は自動的にスキップ)
	if _, err := db.Exec(seedFeedsSQL); err != nil {
		return err
	}

	return nil
}

// MigrateDown rolls back the database schema.
// This function removes tables in reverse order of creation.
// Use with caution: this will delete all data in the affected tables.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS feed_run_metrics`,
		`DROP TABLE IF EXISTS fetch_runs`,
		`DROP TABLE IF EXISTS fetch_errors`,
		`DROP TABLE IF EXISTS alert_log`,
		`DROP TABLE IF EXISTS school_events`,
		`DROP TABLE IF EXISTS article_bills`,
		`DROP TABLE IF EXISTS ky_bills`,
		`DROP TABLE IF EXISTS ingestion_queue`,
		`DROP TABLE IF EXISTS item_categories`,
		`DROP TABLE IF EXISTS item_locations`,
		`DROP TABLE IF EXISTS feed_items`,
		`DROP TABLE IF EXISTS items`,
		`DROP TABLE IF EXISTS feeds`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
