package repository

import (
	"context"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

// Upsert outcomes. Unchanged means the stored content hash matched and
// only the feed link was ensured.
const (
	UpsertInserted  = "inserted"
	UpsertUpdated   = "updated"
	UpsertUnchanged = "unchanged"
)

// ItemSignature is the slice of an item the dedup engine compares against:
// its MinHash signature plus the columns that pick the canonical on a match.
type ItemSignature struct {
	ItemID      string
	Signature   string
	PublishedAt *time.Time
	FetchedAt   time.Time
	IsPaywalled bool
	WordCount   int
}

// ItemQuery describes one ranked query. Zero values mean "no filter".
type ItemQuery struct {
	Categories []string
	Counties   []string // county filter; entries match item_locations.county
	StateCode  string
	Scope      string // region_scope filter: ky or national
	Breaking   bool   // only items whose breaking flag is still active
	// Duplicates and paywalled items are excluded unless asked for.
	IncludeDuplicates bool
	IncludePaywalled  bool
	Since             *time.Time // floor on the composite sort timestamp
	Limit             int
	// Cursor resumes a previous page. SortTS is the composite timestamp of
	// the last row handed out; ItemID breaks ties.
	CursorSortTS *time.Time
	CursorItemID string
	Now          time.Time // evaluation instant for breaking expiry
}

type ItemRepository interface {
	Get(ctx context.Context, id string) (*entity.Item, error)
	// Upsert writes the item and ensures the (feed, item) link. When the
	// stored hash equals the incoming one the row is left alone. Updates
	// merge nullable columns with COALESCE so enrichment results survive
	// reingestion.
	Upsert(ctx context.Context, item *entity.Item, feedID string) (string, error)
	// ExistingIDs はバッチでID存在チェックを行い、N+1問題を解消する
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	// RemoveFromFeed drops the feed link and deletes the item when no
	// other feed references it. Returns whether the item row was deleted.
	RemoveFromFeed(ctx context.Context, feedID, itemID string) (bool, error)

	// Enrichment writes, grouped per pipeline step.
	SaveBody(ctx context.Context, id, bodyText, imageURL string, wordCount int) error
	// SaveSignature persists the MinHash before any lookup runs, so
	// concurrent workers always see each other's signatures.
	SaveSignature(ctx context.Context, id, signature string) error
	RecentSignatures(ctx context.Context, since time.Time, limit int) ([]ItemSignature, error)
	MarkDuplicate(ctx context.Context, id, canonicalID string, deprioritized bool) error
	SavePaywall(ctx context.Context, id string, paywalled bool, confidence int, signals []string) error
	SaveBreaking(ctx context.Context, id, level string, isBreaking bool, sentiment string, expiresAt *time.Time) error
	SaveSummary(ctx context.Context, id, aiSummary, metaDescription string) error

	ReplaceLocations(ctx context.Context, itemID string, locations []entity.ItemLocation) error
	ReplaceCategories(ctx context.Context, itemID string, categories []string) error
	AddCategory(ctx context.Context, itemID, category string) error

	// List runs the ranked query of the read API.
	List(ctx context.Context, q ItemQuery) ([]*entity.Item, error)
	// CountsByCountySince returns item counts per county for the coverage
	// window. Counties absent from the map produced nothing.
	CountsByCountySince(ctx context.Context, since time.Time) (map[string]int, error)
	// ListRecentWithText returns items fetched since the given time that
	// have any text to scan, for the nightly bill sweep.
	ListRecentWithText(ctx context.Context, since time.Time, limit int) ([]*entity.Item, error)
}
