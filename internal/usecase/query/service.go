// Package query is the read surface of the pipeline: ranked item pages
// with keyset pagination, the breaking ticker and the coverage report.
// It owns option validation and cursor encoding; the ranking itself is
// pushed into the store.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/geotag"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

const (
	defaultLimit = 25
	maxLimit     = 100

	tickerSize     = 10
	coverageWindow = 7 * 24 * time.Hour
)

// Options describes one page request.
type Options struct {
	Categories        []string
	Counties          []string
	Scope             string // "", "ky" or "national"
	Limit             int
	Cursor            string // opaque, from a previous page
	Since             *time.Time
	IncludeDuplicates bool
	IncludePaywalled  bool
}

// Page is one page of ranked items plus the cursor for the next one.
// NextCursor is empty on the last page.
type Page struct {
	Items      []*entity.Item
	NextCursor string
}

// Service composes read queries over the item repository.
type Service struct {
	items repository.ItemRepository
	gaz   *geotag.Gazetteer
	now   func() time.Time
}

// NewService creates a new query Service.
func NewService(items repository.ItemRepository, gaz *geotag.Gazetteer) *Service {
	return &Service{items: items, gaz: gaz, now: time.Now}
}

// validate normalizes the options in place.
func (o *Options) validate() error {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	switch o.Scope {
	case "", entity.RegionScopeKY, entity.RegionScopeNational:
	default:
		return fmt.Errorf("invalid scope %q", o.Scope)
	}
	return nil
}

// List returns one ranked page.
func (s *Service) List(ctx context.Context, opts Options) (*Page, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	q := repository.ItemQuery{
		Categories:        opts.Categories,
		Counties:          opts.Counties,
		Scope:             opts.Scope,
		Since:             opts.Since,
		IncludeDuplicates: opts.IncludeDuplicates,
		IncludePaywalled:  opts.IncludePaywalled,
		Limit:             opts.Limit,
		Now:               s.now().UTC(),
	}
	if len(opts.Counties) > 0 {
		q.StateCode = s.gaz.StateCode()
	}

	if opts.Cursor != "" {
		ts, id, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		q.CursorSortTS = &ts
		q.CursorItemID = id
	}

	items, err := s.items.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	page := &Page{Items: items}
	if len(items) == opts.Limit {
		last := items[len(items)-1]
		page.NextCursor = EncodeCursor(sortTimestamp(last), last.ID)
	}
	return page, nil
}

// sortTimestamp is the composite recency key: publication time with a
// fetch-time fallback, mirroring the store's ordering.
func sortTimestamp(item *entity.Item) time.Time {
	if item.PublishedAt != nil {
		return *item.PublishedAt
	}
	return item.FetchedAt
}

// EncodeCursor renders a keyset cursor as "<iso_sort_ts>|<item_id>".
func EncodeCursor(ts time.Time, itemID string) string {
	return ts.UTC().Format(time.RFC3339Nano) + "|" + itemID
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (time.Time, string, error) {
	raw, id, ok := strings.Cut(cursor, "|")
	if !ok || id == "" {
		return time.Time{}, "", fmt.Errorf("DecodeCursor: malformed cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("DecodeCursor: timestamp: %w", err)
	}
	return ts, id, nil
}

// alertLevelRank orders the ticker: emergency < breaking < developing.
func alertLevelRank(level string) int {
	switch level {
	case entity.AlertLevelEmergency:
		return 0
	case entity.AlertLevelBreaking:
		return 1
	case entity.AlertLevelDeveloping:
		return 2
	default:
		return 3
	}
}

// BreakingTicker returns the top active breaking items, most urgent
// level first, then most recent.
func (s *Service) BreakingTicker(ctx context.Context) ([]*entity.Item, error) {
	now := s.now().UTC()
	items, err := s.items.List(ctx, repository.ItemQuery{
		Breaking:         true,
		IncludePaywalled: true,
		Limit:            tickerSize * 3, // headroom before the level re-sort
		Now:              now,
	})
	if err != nil {
		return nil, fmt.Errorf("BreakingTicker: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := alertLevelRank(items[i].AlertLevel), alertLevelRank(items[j].AlertLevel)
		if ri != rj {
			return ri < rj
		}
		return sortTimestamp(items[i]).After(sortTimestamp(items[j]))
	})

	if len(items) > tickerSize {
		items = items[:tickerSize]
	}
	return items, nil
}

// CountyCoverage is one row of the coverage report.
type CountyCoverage struct {
	County string
	Items  int
}

// CoverageReport returns the per-county item counts over the last seven
// days, every county present, quietest first.
func (s *Service) CoverageReport(ctx context.Context) ([]CountyCoverage, error) {
	counts, err := s.items.CountsByCountySince(ctx, s.now().UTC().Add(-coverageWindow))
	if err != nil {
		return nil, fmt.Errorf("CoverageReport: %w", err)
	}

	report := make([]CountyCoverage, 0, s.gaz.CountyCount())
	for _, county := range s.gaz.Counties() {
		report = append(report, CountyCoverage{County: county, Items: counts[county]})
	}
	sort.SliceStable(report, func(i, j int) bool {
		if report[i].Items != report[j].Items {
			return report[i].Items < report[j].Items
		}
		return report[i].County < report[j].County
	})
	return report, nil
}
