// Package ingest implements the feed ingestion orchestrator: one
// invocation polls the due feeds with conditional GETs, parses whatever
// changed, upserts the resulting items and queues them for enrichment.
// Per-feed failures never abort the run.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Br0ck25/kynews-sub003/internal/canonical"
	"github.com/Br0ck25/kynews-sub003/internal/config"
	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/geotag"
	"github.com/Br0ck25/kynews-sub003/internal/infra/fetcher"
	"github.com/Br0ck25/kynews-sub003/internal/infra/scraper"
	"github.com/Br0ck25/kynews-sub003/internal/observability/metrics"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

// htmlAccept is the Accept header for scrape and facebook-page feeds.
const htmlAccept = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"

// htmlBodyCap bounds HTML documents; feed XML stays uncapped.
const htmlBodyCap = 1536 * 1024

// Service orchestrates one ingestion run across the due feeds.
type Service struct {
	feeds   repository.FeedRepository
	items   repository.ItemRepository
	queue   repository.QueueRepository
	runs    repository.RunRepository
	client  *fetcher.Client
	article *fetcher.ArticleFetcher
	parsers *scraper.ParserFactory
	tagger  *geotag.Tagger
	cfg     *config.PipelineConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new ingestion Service with the provided dependencies.
// article may be nil to disable the readable-body relevance fallback.
func NewService(
	feeds repository.FeedRepository,
	items repository.ItemRepository,
	queue repository.QueueRepository,
	runs repository.RunRepository,
	client *fetcher.Client,
	article *fetcher.ArticleFetcher,
	parsers *scraper.ParserFactory,
	tagger *geotag.Tagger,
	cfg *config.PipelineConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		feeds:   feeds,
		items:   items,
		queue:   queue,
		runs:    runs,
		client:  client,
		article: article,
		parsers: parsers,
		tagger:  tagger,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// RunStats summarizes one ingestion run.
type RunStats struct {
	Feeds         int           `json:"feeds"`
	NotModified   int           `json:"not_modified"`
	Errors        int           `json:"errors"`
	ItemsSeen     int           `json:"items_seen"`
	ItemsUpserted int           `json:"items_upserted"`
	ItemsRejected int           `json:"items_rejected"`
	Duration      time.Duration `json:"-"`
}

// Run polls up to MaxFeedsPerRun due feeds, stalest first, inside one
// FetchRun header. A feed failure records an error metric and moves on.
func (s *Service) Run(ctx context.Context) (*RunStats, error) {
	started := s.now().UTC()
	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID))

	if err := s.runs.StartRun(ctx, &entity.FetchRun{
		ID:        runID,
		Source:    "ingest",
		Status:    entity.RunStatusRunning,
		StartedAt: started,
	}); err != nil {
		return nil, fmt.Errorf("Run: start run: %w", err)
	}

	stats := &RunStats{}
	feeds, err := s.feeds.ListDue(ctx, s.cfg.MaxFeedsPerRun)
	if err != nil {
		s.finishRun(ctx, runID, entity.RunStatusFailed, stats)
		return nil, fmt.Errorf("Run: list due feeds: %w", err)
	}
	stats.Feeds = len(feeds)

	for _, feed := range feeds {
		if ctx.Err() != nil {
			break
		}
		s.processFeed(ctx, logger, runID, feed, stats)
	}

	stats.Duration = time.Since(started)
	s.finishRun(ctx, runID, entity.RunStatusOK, stats)

	metrics.RecordIngestRunDuration(stats.Duration)
	metrics.RecordItemsUpserted(stats.ItemsUpserted)
	metrics.RecordItemsRejected(stats.ItemsRejected)

	logger.Info("ingestion run completed",
		slog.Int("feeds", stats.Feeds),
		slog.Int("not_modified", stats.NotModified),
		slog.Int("errors", stats.Errors),
		slog.Int("items_seen", stats.ItemsSeen),
		slog.Int("items_upserted", stats.ItemsUpserted),
		slog.Int("items_rejected", stats.ItemsRejected),
		slog.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func (s *Service) finishRun(ctx context.Context, runID, status string, stats *RunStats) {
	details, _ := json.Marshal(stats)
	// 実行ヘッダは必ず閉じる
	safeCtx := context.WithoutCancel(ctx)
	if err := s.runs.FinishRun(safeCtx, runID, status, string(details), s.now().UTC()); err != nil {
		s.logger.Warn("failed to finish run", slog.String("run_id", runID), slog.Any("error", err))
	}
}

// processFeed handles one feed end to end and records its FeedRunMetric.
func (s *Service) processFeed(ctx context.Context, logger *slog.Logger, runID string, feed *entity.Feed, stats *RunStats) {
	feedStart := s.now()
	metric := &entity.FeedRunMetric{RunID: runID, FeedID: feed.ID}

	seen, upserted, httpStatus, err := s.pollFeed(ctx, logger, feed, stats)
	metric.HTTPStatus = httpStatus
	metric.DurationMS = time.Since(feedStart).Milliseconds()
	metric.ItemsSeen = seen
	metric.ItemsUpserted = upserted

	switch {
	case err != nil:
		stats.Errors++
		metric.Status = entity.FeedRunError
		metric.ErrorMessage = text.TruncateRunes(err.Error(), 500)
		logger.Warn("feed poll failed",
			slog.String("feed_id", feed.ID),
			slog.String("url", feed.URL),
			slog.Any("error", err))
		metrics.RecordFeedFetchError(feed.ID, errorType(err))
		if recErr := s.runs.RecordError(ctx, feed.ID, s.now().UTC(), metric.ErrorMessage); recErr != nil {
			logger.Warn("failed to record fetch error", slog.Any("error", recErr))
		}
	case httpStatus == 304 || seen == 0:
		stats.NotModified++
		metric.Status = entity.FeedRunNotModified
	default:
		metric.Status = entity.FeedRunOK
	}
	metrics.RecordFeedProcessed(metric.Status)
	metrics.RecordFeedFetch(feed.FetchMode, time.Since(feedStart))

	if err := s.runs.RecordFeedMetric(ctx, metric); err != nil {
		logger.Warn("failed to record feed metric",
			slog.String("feed_id", feed.ID), slog.Any("error", err))
	}
}

// pollFeed fetches, parses and upserts one feed's items. It returns
// items seen, items upserted and the HTTP status of the fetch.
func (s *Service) pollFeed(ctx context.Context, logger *slog.Logger, feed *entity.Feed, stats *RunStats) (int, int, int, error) {
	opts := fetcher.Options{
		ETag:         feed.ETag,
		LastModified: feed.LastModified,
		Timeout:      s.cfg.FeedTimeout,
	}
	if feed.FetchMode != entity.FetchModeRSS {
		opts.Accept = htmlAccept
		opts.MaxBodySize = htmlBodyCap
	}

	result, err := s.client.Fetch(ctx, feed.URL, opts)

	// バリデータと確認時刻は成否に関わらず保存する
	etag, lastModified := feed.ETag, feed.LastModified
	httpStatus := 0
	if result != nil {
		etag, lastModified = result.ETag, result.LastModified
		httpStatus = result.Status
	}
	var upstream *fetcher.UpstreamHTTPError
	if errors.As(err, &upstream) {
		httpStatus = upstream.Status
	}
	if saveErr := s.feeds.SaveValidators(ctx, feed.ID, etag, lastModified, s.now().UTC()); saveErr != nil {
		logger.Warn("failed to save validators",
			slog.String("feed_id", feed.ID), slog.Any("error", saveErr))
	}

	if err != nil {
		return 0, 0, httpStatus, fmt.Errorf("pollFeed: fetch: %w", err)
	}
	if result.NotModified || result.Body == "" {
		return 0, 0, httpStatus, nil
	}

	parser, err := s.parsers.ParserFor(feed)
	if err != nil {
		return 0, 0, httpStatus, fmt.Errorf("pollFeed: %w", err)
	}
	entries, err := parser.Parse(feed.URL, result.Body)
	if err != nil {
		return 0, 0, httpStatus, fmt.Errorf("pollFeed: parse: %w", err)
	}

	seen := len(entries)
	stats.ItemsSeen += seen
	if len(entries) > s.cfg.MaxItemsPerFeed {
		entries = entries[:s.cfg.MaxItemsPerFeed]
	}

	upserted := 0
	for _, entry := range entries {
		outcome, err := s.ingestEntry(ctx, logger, feed, entry)
		if err != nil {
			logger.Warn("item ingest failed",
				slog.String("feed_id", feed.ID),
				slog.String("link", entry.Link),
				slog.Any("error", err))
			continue
		}
		switch outcome {
		case repository.UpsertInserted, repository.UpsertUpdated:
			upserted++
		case outcomeRejected:
			stats.ItemsRejected++
		}
	}
	stats.ItemsUpserted += upserted
	return seen, upserted, httpStatus, nil
}

// outcomeRejected marks an entry removed by the KY relevance gate.
const outcomeRejected = "rejected"

// ingestEntry canonicalizes, upserts, relevance-gates, geotags and
// enqueues a single parsed entry.
func (s *Service) ingestEntry(ctx context.Context, logger *slog.Logger, feed *entity.Feed, entry scraper.Entry) (string, error) {
	canonicalURL := canonical.URL(entry.Link)
	item := &entity.Item{
		ID:          canonical.ItemID(canonicalURL, entry.GUID, entry.Title, entry.PublishedAt),
		Title:       entry.Title,
		URL:         canonicalURL,
		GUID:        entry.GUID,
		Author:      entry.Author,
		RegionScope: feed.RegionScope,
		PublishedAt: entry.PublishedAt,
		FetchedAt:   s.now().UTC(),
		Summary:     entry.Snippet,
		Content:     entry.Content,
		ImageURL:    entry.ImageURL,
		Hash:        canonical.ContentHash(entry.Title, entry.Snippet, entry.Content),
		IsFacebook:  feed.FetchMode == entity.FetchModeFacebook,
	}
	if err := item.Validate(); err != nil {
		return "", fmt.Errorf("ingestEntry: validate: %w", err)
	}

	outcome, err := s.items.Upsert(ctx, item, feed.ID)
	if err != nil {
		return "", fmt.Errorf("ingestEntry: upsert: %w", err)
	}

	if outcome != repository.UpsertUnchanged {
		relevant, body := s.kentuckyRelevant(ctx, logger, feed, item)
		if !relevant {
			deleted, err := s.items.RemoveFromFeed(ctx, feed.ID, item.ID)
			if err != nil {
				return "", fmt.Errorf("ingestEntry: remove irrelevant: %w", err)
			}
			logger.Debug("item rejected as not Kentucky-relevant",
				slog.String("item_id", item.ID),
				slog.String("title", item.Title),
				slog.Bool("deleted", deleted))
			return outcomeRejected, nil
		}

		locations := s.tagger.Detect(geotag.Article{
			Title:         item.Title,
			Body:          body,
			RegionScope:   feed.RegionScope,
			FetchMode:     feed.FetchMode,
			DefaultCounty: feed.DefaultCounty,
			CountyMode:    feed.DefaultCountyMode,
		})
		if len(locations) > 0 {
			rows := make([]entity.ItemLocation, 0, len(locations))
			for _, loc := range locations {
				rows = append(rows, entity.ItemLocation{
					ItemID:    item.ID,
					StateCode: loc.StateCode,
					County:    loc.County,
				})
			}
			if err := s.items.ReplaceLocations(ctx, item.ID, rows); err != nil {
				return "", fmt.Errorf("ingestEntry: locations: %w", err)
			}
		}
	}

	if err := s.queue.Enqueue(ctx, item.ID); err != nil {
		return "", fmt.Errorf("ingestEntry: enqueue: %w", err)
	}
	return outcome, nil
}

// kentuckyRelevant runs the three-tier relevance gate: title signal,
// feed-provided body signal, then the fetched readable body. It returns
// the best body text it saw so the caller can geotag without refetching.
// Facebook and national-scope feeds bypass the gate entirely.
func (s *Service) kentuckyRelevant(ctx context.Context, logger *slog.Logger, feed *entity.Feed, item *entity.Item) (bool, string) {
	body := item.Content
	if body == "" {
		body = item.Summary
	}

	if feed.RegionScope != entity.RegionScopeKY || item.IsFacebook {
		return true, body
	}
	// County-scoped feeds are pre-filtered by their source.
	if feed.DefaultCounty != "" && feed.DefaultCountyMode == entity.CountyModeAuthoritative {
		return true, body
	}

	if s.tagger.StrongSignal(item.Title) {
		return true, body
	}
	if body != "" && s.tagger.StrongSignal(body) {
		return true, body
	}

	// Tier 3: fetch the article and inspect the readable body.
	if s.article == nil || item.URL == "" {
		return false, body
	}
	article, err := s.article.FetchArticle(ctx, item.URL)
	if err != nil {
		logger.Debug("relevance body fetch failed",
			slog.String("item_id", item.ID), slog.Any("error", err))
		return false, body
	}
	// 取得済みの本文は保存して、エンリッチメントの再取得を省く
	if saveErr := s.items.SaveBody(ctx, item.ID, article.Text, "", article.WordCount); saveErr != nil {
		logger.Warn("failed to save fetched body",
			slog.String("item_id", item.ID), slog.Any("error", saveErr))
	}
	if s.tagger.StrongSignal(article.Text) {
		return true, article.Text
	}
	return false, article.Text
}

// errorType buckets a poll error for the error-rate metric.
func errorType(err error) string {
	var upstream *fetcher.UpstreamHTTPError
	if errors.As(err, &upstream) {
		if upstream.Status >= 500 {
			return "upstream_5xx"
		}
		return "upstream_4xx"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "fetch_failed"
}
