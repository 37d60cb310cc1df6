// Package sqlite provides SQLite implementations of the repository
// interfaces. One database file holds the whole pipeline state; every
// repo shares the same *sql.DB opened with WAL mode and a busy timeout.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// itemColumns is the full items column list, shared by every SELECT
// that scans a whole entity.Item.
const itemColumns = `id, title, url, guid, author, region_scope, published_at, fetched_at,
summary, content, image_url, body_text, word_count, hash,
minhash, is_duplicate, canonical_item_id,
is_paywalled, paywall_confidence, paywall_signals, paywall_deprioritized,
is_breaking, alert_level, sentiment, breaking_expires_at,
ai_summary, ai_meta_description, categories_json, is_facebook, tags`

// ItemRepo implements repository.ItemRepository using SQLite.
type ItemRepo struct{ db *sql.DB }

// NewItemRepo creates a new SQLite-backed item repository.
func NewItemRepo(db *sql.DB) repository.ItemRepository {
	return &ItemRepo{db: db}
}

// scanItem scans one items row into an entity.
func scanItem(scan func(dest ...interface{}) error) (*entity.Item, error) {
	var item entity.Item
	var guid, author, summary, content, imageURL, bodyText sql.NullString
	var minhash, canonicalID, alertLevel, sentiment sql.NullString
	var aiSummary, aiMeta, categoriesJSON, tags, paywallSignals sql.NullString
	var publishedAt, breakingExpiresAt sql.NullTime

	err := scan(
		&item.ID, &item.Title, &item.URL, &guid, &author, &item.RegionScope,
		&publishedAt, &item.FetchedAt,
		&summary, &content, &imageURL, &bodyText, &item.WordCount, &item.Hash,
		&minhash, &item.IsDuplicate, &canonicalID,
		&item.IsPaywalled, &item.PaywallConfidence, &paywallSignals, &item.PaywallDeprioritized,
		&item.IsBreaking, &alertLevel, &sentiment, &breakingExpiresAt,
		&aiSummary, &aiMeta, &categoriesJSON, &item.IsFacebook, &tags,
	)
	if err != nil {
		return nil, err
	}

	item.GUID = guid.String
	item.Author = author.String
	item.Summary = summary.String
	item.Content = content.String
	item.ImageURL = imageURL.String
	item.BodyText = bodyText.String
	item.MinHash = minhash.String
	item.CanonicalItemID = canonicalID.String
	item.AlertLevel = alertLevel.String
	item.Sentiment = sentiment.String
	item.AISummary = aiSummary.String
	item.AIMetaDescription = aiMeta.String
	item.CategoriesJSON = categoriesJSON.String
	item.Tags = tags.String

	if publishedAt.Valid {
		t := publishedAt.Time
		item.PublishedAt = &t
	}
	if breakingExpiresAt.Valid {
		t := breakingExpiresAt.Time
		item.BreakingExpiresAt = &t
	}
	if paywallSignals.Valid && paywallSignals.String != "" {
		// 信号リストはJSON配列として保存される
		if err := json.Unmarshal([]byte(paywallSignals.String), &item.PaywallSignals); err != nil {
			return nil, fmt.Errorf("scanItem: decode paywall_signals: %w", err)
		}
	}

	return &item, nil
}

func (repo *ItemRepo) Get(ctx context.Context, id string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ? LIMIT 1`

	row := repo.db.QueryRowContext(ctx, query, id)
	item, err := scanItem(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("Get: QueryRowContext: %w", err)
	}
	return item, nil
}

// Upsert writes the item and ensures the (feed, item) link.
// The write never touches enrichment columns: nullable ingest columns
// merge with COALESCE so reingestion cannot erase what the worker
// already computed, and a matching content hash leaves the row alone.
func (repo *ItemRepo) Upsert(ctx context.Context, item *entity.Item, feedID string) (string, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("Upsert: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var storedHash string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM items WHERE id = ?`, item.ID).Scan(&storedHash)

	outcome := repository.UpsertUnchanged
	switch {
	case err == sql.ErrNoRows:
		const insert = `
INSERT INTO items
(id, title, url, guid, author, region_scope, published_at, fetched_at,
 summary, content, image_url, word_count, hash, is_facebook, tags)
VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''))
`
		if _, err := tx.ExecContext(ctx, insert,
			item.ID, item.Title, item.URL, item.GUID, item.Author, item.RegionScope,
			item.PublishedAt, item.FetchedAt,
			item.Summary, item.Content, item.ImageURL, item.WordCount, item.Hash,
			item.IsFacebook, item.Tags,
		); err != nil {
			return "", fmt.Errorf("Upsert: insert: %w", err)
		}
		outcome = repository.UpsertInserted

	case err != nil:
		return "", fmt.Errorf("Upsert: select hash: %w", err)

	case storedHash != item.Hash:
		const update = `
UPDATE items SET
	title        = ?,
	url          = ?,
	guid         = COALESCE(NULLIF(?, ''), guid),
	author       = COALESCE(NULLIF(?, ''), author),
	published_at = COALESCE(?, published_at),
	summary      = COALESCE(NULLIF(?, ''), summary),
	content      = COALESCE(NULLIF(?, ''), content),
	image_url    = COALESCE(NULLIF(?, ''), image_url),
	hash         = ?
WHERE id = ?
`
		if _, err := tx.ExecContext(ctx, update,
			item.Title, item.URL, item.GUID, item.Author, item.PublishedAt,
			item.Summary, item.Content, item.ImageURL, item.Hash, item.ID,
		); err != nil {
			return "", fmt.Errorf("Upsert: update: %w", err)
		}
		outcome = repository.UpsertUpdated
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO feed_items (feed_id, item_id) VALUES (?, ?)`,
		feedID, item.ID,
	); err != nil {
		return "", fmt.Errorf("Upsert: link feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("Upsert: Commit: %w", err)
	}
	return outcome, nil
}

// ExistingIDs はバッチでID存在チェックを行い、N+1問題を解消する
func (repo *ItemRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return make(map[string]bool), nil
	}

	// SQLiteのプレースホルダ上限は999
	// 参考: https://www.sqlite.org/limits.html#max_variable_number
	const maxPlaceholders = 999
	if len(ids) > maxPlaceholders {
		return nil, fmt.Errorf("ExistingIDs: too many ids (%d > %d)", len(ids), maxPlaceholders)
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf("SELECT id FROM items WHERE id IN (%s)",
		strings.Join(placeholders, ","))

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ExistingIDs: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ExistingIDs: Scan: %w", err)
		}
		result[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistingIDs: rows.Err: %w", err)
	}

	return result, nil
}

// RemoveFromFeed drops the feed link and deletes the item when no other
// feed still references it. Used by the KY-relevance gate after an
// item fails all three tiers.
func (repo *ItemRepo) RemoveFromFeed(ctx context.Context, feedID, itemID string) (bool, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("RemoveFromFeed: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM feed_items WHERE feed_id = ? AND item_id = ?`, feedID, itemID,
	); err != nil {
		return false, fmt.Errorf("RemoveFromFeed: unlink: %w", err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feed_items WHERE item_id = ?`, itemID,
	).Scan(&remaining); err != nil {
		return false, fmt.Errorf("RemoveFromFeed: count links: %w", err)
	}

	deleted := false
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID); err != nil {
			return false, fmt.Errorf("RemoveFromFeed: delete item: %w", err)
		}
		deleted = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("RemoveFromFeed: Commit: %w", err)
	}
	return deleted, nil
}

// SaveBody persists the fetched article body. The image URL only fills
// an empty column: a feed-provided image wins over one scraped from
// the page.
func (repo *ItemRepo) SaveBody(ctx context.Context, id, bodyText, imageURL string, wordCount int) error {
	const query = `
UPDATE items SET
	body_text  = ?,
	image_url  = COALESCE(image_url, NULLIF(?, '')),
	word_count = ?
WHERE id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, bodyText, imageURL, wordCount, id); err != nil {
		return fmt.Errorf("SaveBody: ExecContext: %w", err)
	}
	return nil
}

func (repo *ItemRepo) SaveSignature(ctx context.Context, id, signature string) error {
	if _, err := repo.db.ExecContext(ctx,
		`UPDATE items SET minhash = ? WHERE id = ?`, signature, id,
	); err != nil {
		return fmt.Errorf("SaveSignature: ExecContext: %w", err)
	}
	return nil
}

// RecentSignatures excludes rows already marked duplicate, so a dedup
// match always picks a canonical that is itself canonical.
func (repo *ItemRepo) RecentSignatures(ctx context.Context, since time.Time, limit int) ([]repository.ItemSignature, error) {
	const query = `
SELECT id, minhash, published_at, fetched_at, is_paywalled, word_count
FROM items
WHERE minhash IS NOT NULL AND minhash != '' AND is_duplicate = 0 AND fetched_at >= ?
ORDER BY fetched_at DESC
LIMIT ?
`
	rows, err := repo.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentSignatures: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sigs := make([]repository.ItemSignature, 0, 100)
	for rows.Next() {
		var sig repository.ItemSignature
		var publishedAt sql.NullTime
		if err := rows.Scan(&sig.ItemID, &sig.Signature, &publishedAt,
			&sig.FetchedAt, &sig.IsPaywalled, &sig.WordCount); err != nil {
			return nil, fmt.Errorf("RecentSignatures: Scan: %w", err)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			sig.PublishedAt = &t
		}
		sigs = append(sigs, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RecentSignatures: rows.Err: %w", err)
	}
	return sigs, nil
}

func (repo *ItemRepo) MarkDuplicate(ctx context.Context, id, canonicalID string, deprioritized bool) error {
	const query = `
UPDATE items SET
	is_duplicate          = 1,
	canonical_item_id     = ?,
	paywall_deprioritized = ?
WHERE id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, canonicalID, deprioritized, id); err != nil {
		return fmt.Errorf("MarkDuplicate: ExecContext: %w", err)
	}
	return nil
}

func (repo *ItemRepo) SavePaywall(ctx context.Context, id string, paywalled bool, confidence int, signals []string) error {
	signalsJSON := ""
	if len(signals) > 0 {
		encoded, err := json.Marshal(signals)
		if err != nil {
			return fmt.Errorf("SavePaywall: encode signals: %w", err)
		}
		signalsJSON = string(encoded)
	}

	const query = `
UPDATE items SET
	is_paywalled       = ?,
	paywall_confidence = ?,
	paywall_signals    = NULLIF(?, '')
WHERE id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, paywalled, confidence, signalsJSON, id); err != nil {
		return fmt.Errorf("SavePaywall: ExecContext: %w", err)
	}
	return nil
}

func (repo *ItemRepo) SaveBreaking(ctx context.Context, id, level string, isBreaking bool, sentiment string, expiresAt *time.Time) error {
	const query = `
UPDATE items SET
	is_breaking         = ?,
	alert_level         = NULLIF(?, ''),
	sentiment           = NULLIF(?, ''),
	breaking_expires_at = ?
WHERE id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, isBreaking, level, sentiment, expiresAt, id); err != nil {
		return fmt.Errorf("SaveBreaking: ExecContext: %w", err)
	}
	return nil
}

func (repo *ItemRepo) SaveSummary(ctx context.Context, id, aiSummary, metaDescription string) error {
	const query = `
UPDATE items SET
	ai_summary          = NULLIF(?, ''),
	ai_meta_description = NULLIF(?, '')
WHERE id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, aiSummary, metaDescription, id); err != nil {
		return fmt.Errorf("SaveSummary: ExecContext: %w", err)
	}
	return nil
}

func (repo *ItemRepo) ReplaceLocations(ctx context.Context, itemID string, locations []entity.ItemLocation) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceLocations: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_locations WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("ReplaceLocations: delete: %w", err)
	}

	for _, loc := range locations {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_locations (item_id, state_code, county) VALUES (?, ?, ?)`,
			itemID, loc.StateCode, loc.County,
		); err != nil {
			return fmt.Errorf("ReplaceLocations: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ReplaceLocations: Commit: %w", err)
	}
	return nil
}

// ReplaceCategories rewrites the category rows and keeps the
// denormalized categories_json column in step.
func (repo *ItemRepo) ReplaceCategories(ctx context.Context, itemID string, categories []string) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceCategories: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_categories WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("ReplaceCategories: delete: %w", err)
	}

	for _, category := range categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_categories (item_id, category) VALUES (?, ?)`,
			itemID, category,
		); err != nil {
			return fmt.Errorf("ReplaceCategories: insert: %w", err)
		}
	}

	if err := updateCategoriesJSON(ctx, tx, itemID, categories); err != nil {
		return fmt.Errorf("ReplaceCategories: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ReplaceCategories: Commit: %w", err)
	}
	return nil
}

func (repo *ItemRepo) AddCategory(ctx context.Context, itemID, category string) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("AddCategory: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO item_categories (item_id, category) VALUES (?, ?)`,
		itemID, category,
	); err != nil {
		return fmt.Errorf("AddCategory: insert: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT category FROM item_categories WHERE item_id = ? ORDER BY category`, itemID)
	if err != nil {
		return fmt.Errorf("AddCategory: list categories: %w", err)
	}
	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			_ = rows.Close()
			return fmt.Errorf("AddCategory: Scan: %w", err)
		}
		categories = append(categories, c)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("AddCategory: rows.Err: %w", err)
	}

	if err := updateCategoriesJSON(ctx, tx, itemID, categories); err != nil {
		return fmt.Errorf("AddCategory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("AddCategory: Commit: %w", err)
	}
	return nil
}

// updateCategoriesJSON rewrites the denormalized column from the
// category list.
func updateCategoriesJSON(ctx context.Context, tx *sql.Tx, itemID string, categories []string) error {
	categoriesJSON := ""
	if len(categories) > 0 {
		encoded, err := json.Marshal(categories)
		if err != nil {
			return fmt.Errorf("encode categories: %w", err)
		}
		categoriesJSON = string(encoded)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET categories_json = NULLIF(?, '') WHERE id = ?`,
		categoriesJSON, itemID,
	); err != nil {
		return fmt.Errorf("update categories_json: %w", err)
	}
	return nil
}

// List runs the ranked read query. See item_query_builder.go for the
// predicate and ordering construction.
func (repo *ItemRepo) List(ctx context.Context, q repository.ItemQuery) ([]*entity.Item, error) {
	query, args := buildItemQuery(q)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// パフォーマンス最適化: メモリ再割り当てを削減するため事前割り当て
	items := make([]*entity.Item, 0, 100)
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows.Err: %w", err)
	}
	return items, nil
}

func (repo *ItemRepo) CountsByCountySince(ctx context.Context, since time.Time) (map[string]int, error) {
	const query = `
SELECT il.county, COUNT(DISTINCT il.item_id)
FROM item_locations il
JOIN items i ON i.id = il.item_id
WHERE il.county != '' AND i.fetched_at >= ?
GROUP BY il.county
`
	rows, err := repo.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("CountsByCountySince: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var county string
		var count int
		if err := rows.Scan(&county, &count); err != nil {
			return nil, fmt.Errorf("CountsByCountySince: Scan: %w", err)
		}
		counts[county] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CountsByCountySince: rows.Err: %w", err)
	}
	return counts, nil
}

func (repo *ItemRepo) ListRecentWithText(ctx context.Context, since time.Time, limit int) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + `
FROM items
WHERE fetched_at >= ?
  AND (body_text IS NOT NULL AND body_text != ''
       OR summary IS NOT NULL AND summary != ''
       OR title != '')
ORDER BY fetched_at DESC
LIMIT ?
`
	rows, err := repo.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecentWithText: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*entity.Item, 0, 100)
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("ListRecentWithText: Scan: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecentWithText: rows.Err: %w", err)
	}
	return items, nil
}
