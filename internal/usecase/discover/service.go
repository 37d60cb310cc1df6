// Package discover upgrades scrape-mode feeds to RSS. Many small-town
// news sites run on platforms that expose a feed at a well-known path
// without linking it anywhere; polling a real feed is cheaper and far
// more reliable than selector scraping, so the weekly discovery pass
// probes for one.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/infra/fetcher"
	"github.com/Br0ck25/kynews-sub003/internal/infra/scraper"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// probePaths are the common feed locations, tried in order.
var probePaths = []string{
	"/feed",
	"/rss",
	"/rss.xml",
	"/feed.xml",
	"/index.rss",
	"/atom.xml",
}

const probeTimeout = 10 * time.Second

// Service probes scrape feeds for an undiscovered RSS endpoint.
type Service struct {
	feeds  repository.FeedRepository
	client *fetcher.Client
	rss    scraper.Parser
	logger *slog.Logger
}

// NewService creates a new discovery Service.
func NewService(feeds repository.FeedRepository, client *fetcher.Client, logger *slog.Logger) *Service {
	return &Service{
		feeds:  feeds,
		client: client,
		rss:    scraper.NewRSSParser(),
		logger: logger,
	}
}

// Run probes every enabled scrape-mode feed. A feed is promoted only
// when a probe response parses as RSS/Atom with at least one item.
func (s *Service) Run(ctx context.Context) (int, error) {
	feeds, err := s.feeds.ListByFetchMode(ctx, entity.FetchModeScrape)
	if err != nil {
		return 0, fmt.Errorf("Run: list scrape feeds: %w", err)
	}

	promoted := 0
	for _, feed := range feeds {
		if ctx.Err() != nil {
			break
		}

		feedURL, ok := s.probe(ctx, feed)
		if !ok {
			continue
		}

		if err := s.feeds.PromoteToRSS(ctx, feed.ID, feedURL); err != nil {
			s.logger.Warn("failed to promote feed",
				slog.String("feed_id", feed.ID), slog.Any("error", err))
			continue
		}
		promoted++
		s.logger.Info("scrape feed promoted to rss",
			slog.String("feed_id", feed.ID),
			slog.String("feed_url", feedURL))
	}
	return promoted, nil
}

// probe tries the candidate paths against the feed's site root.
func (s *Service) probe(ctx context.Context, feed *entity.Feed) (string, bool) {
	parsed, err := url.Parse(feed.URL)
	if err != nil {
		return "", false
	}
	base := parsed.Scheme + "://" + parsed.Host

	for _, path := range probePaths {
		probeURL := base + path
		result, err := s.client.Fetch(ctx, probeURL, fetcher.Options{
			Force:   true,
			Timeout: probeTimeout,
		})
		if err != nil {
			continue
		}
		// フィードらしくない応答は飛ばす
		if !strings.Contains(result.Body, "<rss") && !strings.Contains(result.Body, "<feed") {
			continue
		}
		entries, err := s.rss.Parse(probeURL, result.Body)
		if err != nil || len(entries) == 0 {
			continue
		}
		return probeURL, true
	}
	return "", false
}
