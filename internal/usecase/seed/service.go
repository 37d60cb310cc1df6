// Package seed maintains the Bing News fallback feeds: every Kentucky
// county without a curated source gets a synthetic RSS feed querying
// Bing News for the county, so no county is ever fully dark.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/geotag"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

const bingNewsBase = "https://www.bing.com/news/search"

// Service seeds fallback feeds for uncovered counties.
type Service struct {
	feeds  repository.FeedRepository
	gaz    *geotag.Gazetteer
	logger *slog.Logger
}

// NewService creates a new seeder.
func NewService(feeds repository.FeedRepository, gaz *geotag.Gazetteer, logger *slog.Logger) *Service {
	return &Service{feeds: feeds, gaz: gaz, logger: logger}
}

// Run upserts one Bing fallback feed per uncovered county. The upsert
// is idempotent on the feed id, so repeated runs converge.
func (s *Service) Run(ctx context.Context) (int, error) {
	covered, err := s.feeds.CoveredCounties(ctx)
	if err != nil {
		return 0, fmt.Errorf("Run: covered counties: %w", err)
	}
	coveredSet := make(map[string]bool, len(covered))
	for _, county := range covered {
		coveredSet[county] = true
	}

	seeded := 0
	for _, county := range s.gaz.Counties() {
		if coveredSet[county] {
			continue
		}

		feed := bingFeed(county, s.gaz.StateCode())
		if err := s.feeds.Upsert(ctx, feed); err != nil {
			return seeded, fmt.Errorf("Run: upsert %s: %w", feed.ID, err)
		}
		seeded++
	}

	s.logger.Info("bing fallback seeding completed",
		slog.Int("covered", len(covered)),
		slog.Int("seeded", seeded))
	return seeded, nil
}

// bingFeed builds the synthetic feed row for one county.
func bingFeed(county, stateCode string) *entity.Feed {
	query := url.Values{}
	query.Set("q", county+" County Kentucky")
	query.Set("format", "rss")

	return &entity.Feed{
		ID:          "bing-" + slug(county),
		Name:        county + " County (Bing News)",
		URL:         bingNewsBase + "?" + query.Encode(),
		Category:    "news",
		StateCode:   stateCode,
		RegionScope: entity.RegionScopeKY,
		FetchMode:   entity.FetchModeRSS,
		// Bing results are uncurated, so the county attaches only when
		// the tagger finds nothing better.
		DefaultCounty:     county,
		DefaultCountyMode: entity.CountyModeFallback,
		Enabled:           true,
		IsBingFallback:    true,
	}
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
