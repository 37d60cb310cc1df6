package repository

import (
	"context"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

type FeedRepository interface {
	// ListDue returns up to limit enabled feeds ordered stalest first:
	// feeds never checked sort before everything else.
	ListDue(ctx context.Context, limit int) ([]*entity.Feed, error)
	ListEnabled(ctx context.Context) ([]*entity.Feed, error)
	// ListByFetchMode returns enabled feeds with the given fetch mode.
	ListByFetchMode(ctx context.Context, mode string) ([]*entity.Feed, error)
	Get(ctx context.Context, id string) (*entity.Feed, error)
	// ListForItem returns the feeds the item arrived on. Enrichment uses
	// it to keep feed-level county defaults through a location retag.
	ListForItem(ctx context.Context, itemID string) ([]*entity.Feed, error)
	// Upsert inserts the feed or updates its mutable columns in place.
	// Seeding runs it repeatedly, so it must be idempotent on id.
	Upsert(ctx context.Context, feed *entity.Feed) error
	// SaveValidators persists the conditional-fetch state after a poll.
	// Called on every outcome including 304 and errors, so the stalest
	// ordering in ListDue keeps rotating.
	SaveValidators(ctx context.Context, id, etag, lastModified string, checkedAt time.Time) error
	// PromoteToRSS switches a scrape feed to rss mode at the discovered
	// feed URL.
	PromoteToRSS(ctx context.Context, id, feedURL string) error
	// CoveredCounties returns the default counties of enabled feeds,
	// excluding bing fallbacks. The seeder diffs this against the full
	// county list.
	CoveredCounties(ctx context.Context) ([]string, error)
}
