// Package enrich implements the enrichment worker: a bounded-concurrency
// pass over the pending ingestion queue running body fetch, the word
// gate, paywall scoring, dedup, breaking classification, geotagging,
// bill linking and AI summarization per item. Every transition is
// idempotent, so a crashed pass is safely retried by the unstick sweep.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Br0ck25/kynews-sub003/internal/bills"
	"github.com/Br0ck25/kynews-sub003/internal/classify"
	"github.com/Br0ck25/kynews-sub003/internal/config"
	"github.com/Br0ck25/kynews-sub003/internal/dedup"
	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/geotag"
	"github.com/Br0ck25/kynews-sub003/internal/infra/fetcher"
	"github.com/Br0ck25/kynews-sub003/internal/infra/summarizer"
	"github.com/Br0ck25/kynews-sub003/internal/observability/metrics"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

const (
	// unstickAfter is how long a row may sit mid-pipeline before the
	// recovery sweep reverts it to pending.
	unstickAfter = 10 * time.Minute

	// minWordCount is the acceptance floor of the word-count gate.
	minWordCount = 50

	// dedupWindow and dedupScanCap bound the signature comparison scan.
	dedupWindow  = 48 * time.Hour
	dedupScanCap = 500

	// duplicateThreshold is the Jaccard estimate above which two items
	// collapse. 12 of 16 matching positions clears it, 11 does not.
	duplicateThreshold = 0.72

	// deprioritizeMinWords: a canonical must have at least this many
	// words before its paywalled duplicate is pushed below the fold.
	deprioritizeMinWords = 30

	// lastErrorLimit bounds the error text stored on the queue row.
	lastErrorLimit = 500
)

// BreakingAlerter fires a breaking-news alert for a single item.
// Implemented by the alert service; nil disables the hook.
type BreakingAlerter interface {
	BreakingItem(ctx context.Context, item *entity.Item) error
}

// Service drains the pending queue in bounded-concurrency batches.
type Service struct {
	items      repository.ItemRepository
	feeds      repository.FeedRepository
	queue      repository.QueueRepository
	billRepo   repository.BillRepository
	article    *fetcher.ArticleFetcher
	summarizer summarizer.Summarizer
	tagger     *geotag.Tagger
	alerter    BreakingAlerter
	cfg        *config.PipelineConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new enrichment Service. article, summarizer and
// alerter may each be nil: the corresponding step is skipped.
func NewService(
	items repository.ItemRepository,
	feeds repository.FeedRepository,
	queue repository.QueueRepository,
	billRepo repository.BillRepository,
	article *fetcher.ArticleFetcher,
	sum summarizer.Summarizer,
	tagger *geotag.Tagger,
	alerter BreakingAlerter,
	cfg *config.PipelineConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		items:      items,
		feeds:      feeds,
		queue:      queue,
		billRepo:   billRepo,
		article:    article,
		summarizer: sum,
		tagger:     tagger,
		alerter:    alerter,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Run performs one enrichment pass: unstick sweep, queue depth gauges,
// then up to WorkerBatch items enriched with WorkerConcurrency workers.
func (s *Service) Run(ctx context.Context) error {
	moved, err := s.queue.Unstick(ctx, s.now().UTC().Add(-unstickAfter))
	if err != nil {
		return fmt.Errorf("Run: unstick: %w", err)
	}
	if moved > 0 {
		s.logger.Info("reverted stuck queue rows", slog.Int("count", moved))
	}

	if counts, err := s.queue.CountByStatus(ctx); err == nil {
		for status, depth := range counts {
			metrics.UpdateQueueDepth(status, depth)
		}
	}

	claimed, err := s.queue.ClaimPending(ctx, s.cfg.WorkerBatch)
	if err != nil {
		return fmt.Errorf("Run: claim pending: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerConcurrency)
	for _, entry := range claimed {
		entry := entry
		g.Go(func() error {
			start := s.now()
			status := s.processItem(gctx, entry)
			metrics.RecordEnrichmentOutcome(status)
			metrics.RecordEnrichmentDuration(time.Since(start))
			return nil
		})
	}
	return g.Wait()
}

// processItem runs the per-item pipeline and returns the final queue status.
func (s *Service) processItem(ctx context.Context, entry *entity.QueueEntry) string {
	logger := s.logger.With(slog.String("item_id", entry.ItemID))

	item, err := s.items.Get(ctx, entry.ItemID)
	if err != nil || item == nil {
		s.fail(ctx, logger, entry.ItemID, fmt.Errorf("load item: %w", err))
		return entity.QueueFailed
	}

	bodyText, rawHTML, wordCount := s.fetchBody(ctx, logger, item)

	// 短すぎる記事は除外する(Facebookは対象外)
	if !item.IsFacebook && wordCount < minWordCount {
		if err := s.queue.SetStatus(ctx, item.ID, entity.QueueRejectedShort); err != nil {
			logger.Warn("failed to set rejected_short", slog.Any("error", err))
		}
		// Rejected items lose their category tags so stray EXISTS
		// predicates can never surface them.
		if err := s.items.ReplaceCategories(ctx, item.ID, nil); err != nil {
			logger.Warn("failed to clear categories", slog.Any("error", err))
		}
		logger.Debug("item rejected as too short", slog.Int("word_count", wordCount))
		return entity.QueueRejectedShort
	}

	paywall := s.detectPaywall(ctx, logger, item, rawHTML, bodyText, wordCount)
	s.dedup(ctx, logger, item, paywall)
	breaking := s.classifyBreaking(ctx, logger, item, bodyText)
	s.retag(ctx, logger, item, bodyText)
	s.linkBills(ctx, logger, item, bodyText)

	if status := s.summarize(ctx, logger, item, bodyText); status != "" {
		return status
	}

	if err := s.queue.SetStatus(ctx, item.ID, entity.QueueDone); err != nil {
		logger.Warn("failed to mark done", slog.Any("error", err))
	}

	if breaking.IsBreaking && s.cfg.AlertOnBreaking && s.alerter != nil {
		item.IsBreaking = true
		item.AlertLevel = breaking.AlertLevel
		item.BreakingExpiresAt = breaking.ExpiresAt
		if err := s.alerter.BreakingItem(ctx, item); err != nil {
			logger.Warn("breaking alert failed", slog.Any("error", err))
		}
	}
	return entity.QueueDone
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, itemID string, err error) {
	logger.Warn("enrichment failed", slog.Any("error", err))
	if qErr := s.queue.Fail(ctx, itemID, text.TruncateRunes(err.Error(), lastErrorLimit)); qErr != nil {
		logger.Warn("failed to record queue failure", slog.Any("error", qErr))
	}
}

// fetchBody fetches and extracts the article body when possible,
// falling back to whatever text ingestion already stored. A fetch
// failure is non-fatal: the feed summary may still carry the story.
func (s *Service) fetchBody(ctx context.Context, logger *slog.Logger, item *entity.Item) (string, string, int) {
	bodyText := item.BodyText
	wordCount := item.WordCount
	rawHTML := ""

	if !item.IsFacebook && item.URL != "" && s.article != nil {
		start := s.now()
		article, err := s.article.FetchArticle(ctx, item.URL)
		if err != nil {
			logger.Debug("article fetch failed", slog.Any("error", err))
			metrics.RecordBodyFetchFailed(time.Since(start))
		} else {
			bodyText = article.Text
			rawHTML = article.HTML
			wordCount = article.WordCount
			metrics.RecordBodyFetchSuccess(time.Since(start), len(article.Text))
			if err := s.items.SaveBody(ctx, item.ID, bodyText, "", wordCount); err != nil {
				logger.Warn("failed to save body", slog.Any("error", err))
			}
		}
	} else {
		metrics.RecordBodyFetchSkipped()
	}

	if bodyText == "" {
		// RSSの要約を本文の代わりに使う
		if item.Content != "" {
			bodyText = item.Content
		} else {
			bodyText = item.Summary
		}
		wordCount = text.CountWords(bodyText)
	}
	return bodyText, rawHTML, wordCount
}

func (s *Service) detectPaywall(ctx context.Context, logger *slog.Logger, item *entity.Item, rawHTML, bodyText string, wordCount int) classify.PaywallResult {
	result := classify.DetectPaywall(classify.PaywallInput{
		URL:       item.URL,
		HTML:      rawHTML,
		BodyText:  bodyText,
		WordCount: wordCount,
	})
	if err := s.items.SavePaywall(ctx, item.ID, result.Paywalled, result.Confidence, result.Signals); err != nil {
		logger.Warn("failed to save paywall result", slog.Any("error", err))
	}
	if result.Paywalled {
		metrics.RecordPaywallDetected()
	}
	item.IsPaywalled = result.Paywalled
	return result
}

// dedup stores the item's MinHash signature, then scans the recent
// window for the best Jaccard match. The store-before-lookup order
// guarantees concurrent workers see each other's signatures.
func (s *Service) dedup(ctx context.Context, logger *slog.Logger, item *entity.Item, paywall classify.PaywallResult) {
	sig := dedup.Signature(item.Title, item.Summary)
	if err := s.items.SaveSignature(ctx, item.ID, sig); err != nil {
		logger.Warn("failed to save signature", slog.Any("error", err))
		return
	}

	candidates, err := s.items.RecentSignatures(ctx, s.now().UTC().Add(-dedupWindow), dedupScanCap)
	if err != nil {
		logger.Warn("failed to scan signatures", slog.Any("error", err))
		return
	}

	var best *repository.ItemSignature
	bestScore := 0.0
	for i := range candidates {
		c := &candidates[i]
		if c.ItemID == item.ID {
			continue
		}
		score, err := dedup.Jaccard(sig, c.Signature)
		if err != nil {
			continue
		}
		if score > bestScore || (score == bestScore && best != nil && laterPublished(c, best)) {
			bestScore = score
			best = c
		}
	}

	if best == nil || bestScore < duplicateThreshold {
		return
	}

	// 重複かつ有料記事で、正規記事が無料なら優先度を下げる
	deprioritize := paywall.Paywalled && !best.IsPaywalled && best.WordCount >= deprioritizeMinWords
	if err := s.items.MarkDuplicate(ctx, item.ID, best.ItemID, deprioritize); err != nil {
		logger.Warn("failed to mark duplicate", slog.Any("error", err))
		return
	}
	metrics.RecordDuplicateDetected()
	logger.Debug("duplicate detected",
		slog.String("canonical_item_id", best.ItemID),
		slog.Float64("jaccard", bestScore),
		slog.Bool("deprioritized", deprioritize))
}

func laterPublished(a, b *repository.ItemSignature) bool {
	at, bt := a.FetchedAt, b.FetchedAt
	if a.PublishedAt != nil {
		at = *a.PublishedAt
	}
	if b.PublishedAt != nil {
		bt = *b.PublishedAt
	}
	return at.After(bt)
}

func (s *Service) classifyBreaking(ctx context.Context, logger *slog.Logger, item *entity.Item, bodyText string) classify.BreakingResult {
	result := classify.ClassifyBreaking(item.Title, bodyText, s.now().UTC())
	if err := s.items.SaveBreaking(ctx, item.ID, result.AlertLevel, result.IsBreaking,
		result.Sentiment, result.ExpiresAt); err != nil {
		logger.Warn("failed to save breaking result", slog.Any("error", err))
	}
	if result.IsBreaking {
		metrics.RecordBreakingDetected(result.AlertLevel)
	}
	return result
}

// retag reruns the location tagger over the full body and replaces the
// stored locations when the new set is non-empty. The feed's county
// defaults ride along so the replace never drops an authoritative
// default county the ingest pass attached.
func (s *Service) retag(ctx context.Context, logger *slog.Logger, item *entity.Item, bodyText string) {
	fetchMode := entity.FetchModeRSS
	if item.IsFacebook {
		fetchMode = entity.FetchModeFacebook
	}
	article := geotag.Article{
		Title:       item.Title,
		Body:        bodyText,
		RegionScope: item.RegionScope,
		FetchMode:   fetchMode,
	}

	itemFeeds, err := s.feeds.ListForItem(ctx, item.ID)
	if err != nil {
		logger.Warn("failed to load item feeds", slog.Any("error", err))
	}
	for _, feed := range itemFeeds {
		if feed.DefaultCounty == "" {
			continue
		}
		article.DefaultCounty = feed.DefaultCounty
		article.CountyMode = feed.DefaultCountyMode
		if feed.DefaultCountyMode == entity.CountyModeAuthoritative {
			break
		}
	}

	locations := s.tagger.Detect(article)
	if len(locations) == 0 {
		return
	}

	rows := make([]entity.ItemLocation, 0, len(locations))
	for _, loc := range locations {
		rows = append(rows, entity.ItemLocation{
			ItemID:    item.ID,
			StateCode: loc.StateCode,
			County:    loc.County,
		})
	}
	if err := s.items.ReplaceLocations(ctx, item.ID, rows); err != nil {
		logger.Warn("failed to replace locations", slog.Any("error", err))
	}
}

// linkBills extracts bill references and links the ones present in the
// registry. Any successful link also tags the item as legislature news.
func (s *Service) linkBills(ctx context.Context, logger *slog.Logger, item *entity.Item, bodyText string) {
	numbers := bills.Extract(item.Title + " " + bodyText)
	if len(numbers) == 0 {
		return
	}

	registered, err := s.billRepo.Registered(ctx, numbers)
	if err != nil {
		logger.Warn("failed to check bill registry", slog.Any("error", err))
		return
	}

	linked := 0
	for _, number := range numbers {
		if !registered[number] {
			continue
		}
		if err := s.billRepo.Link(ctx, item.ID, number); err != nil {
			logger.Warn("failed to link bill",
				slog.String("bill", number), slog.Any("error", err))
			continue
		}
		linked++
	}
	if linked == 0 {
		return
	}
	if err := s.items.AddCategory(ctx, item.ID, "legislature"); err != nil {
		logger.Warn("failed to add legislature category", slog.Any("error", err))
	}
	metrics.RecordBillLinks(linked)
}

// summarize calls the AI summarizer and persists its output. A missing
// summarizer is not an error: the item keeps its feed summary. The
// returned status is non-empty only when the item should not end done.
func (s *Service) summarize(ctx context.Context, logger *slog.Logger, item *entity.Item, bodyText string) string {
	if s.summarizer == nil {
		return ""
	}

	input := bodyText
	if strings.TrimSpace(input) == "" {
		input = item.Summary
	}
	if err := s.queue.SetStatus(ctx, item.ID, entity.QueueSummarizing); err != nil {
		logger.Warn("failed to set summarizing", slog.Any("error", err))
	}

	summary, err := s.summarizer.Summarize(ctx, item.Title, input)
	if err != nil {
		s.fail(ctx, logger, item.ID, fmt.Errorf("summarize: %w", err))
		return entity.QueueFailed
	}
	if err := s.items.SaveSummary(ctx, item.ID, summary.Summary, summary.MetaDescription); err != nil {
		logger.Warn("failed to save summary", slog.Any("error", err))
	}
	return ""
}
