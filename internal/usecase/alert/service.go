// Package alert evaluates the alert conditions — county coverage gaps,
// repeated feed failures and breaking news — and dispatches them over
// the configured delivery channels with a per-key cooldown.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/geotag"
	"github.com/Br0ck25/kynews-sub003/internal/infra/notifier"
	"github.com/Br0ck25/kynews-sub003/internal/observability/metrics"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

const (
	// coverageWindow is how far back the coverage gap check looks.
	coverageWindow = 48 * time.Hour

	// feedFailureWindow and feedFailureThreshold define the repeated
	// feed failure condition.
	feedFailureWindow    = 3 * time.Hour
	feedFailureThreshold = 3

	// keyCounties caps how many county names go into a coverage key.
	keyCounties = 5
)

// Service owns alert evaluation and delivery.
type Service struct {
	items    repository.ItemRepository
	feeds    repository.FeedRepository
	runs     repository.RunRepository
	log      repository.AlertLogRepository
	gaz      *geotag.Gazetteer
	channels []notifier.Notifier
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new alert Service. An empty channel list is
// valid: conditions are still evaluated and logged, nothing is sent.
func NewService(
	items repository.ItemRepository,
	feeds repository.FeedRepository,
	runs repository.RunRepository,
	log repository.AlertLogRepository,
	gaz *geotag.Gazetteer,
	channels []notifier.Notifier,
	cooldown time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		items:    items,
		feeds:    feeds,
		runs:     runs,
		log:      log,
		gaz:      gaz,
		channels: channels,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// RunCoverageCheck fires a coverage-gap alert when any county produced
// zero items over the last 48 hours.
func (s *Service) RunCoverageCheck(ctx context.Context) error {
	now := s.now().UTC()
	counts, err := s.items.CountsByCountySince(ctx, now.Add(-coverageWindow))
	if err != nil {
		return fmt.Errorf("RunCoverageCheck: county counts: %w", err)
	}

	var gaps []string
	for _, county := range s.gaz.Counties() {
		if counts[county] == 0 {
			gaps = append(gaps, county)
		}
	}
	if len(gaps) == 0 {
		return nil
	}
	sort.Strings(gaps)

	top := gaps
	if len(top) > keyCounties {
		top = top[:keyCounties]
	}
	key := "coverage-gap-" + strings.Join(top, "-")

	alert := &notifier.Alert{
		Key:      key,
		Title:    fmt.Sprintf("%d Kentucky counties without coverage", len(gaps)),
		Body:     coverageBody(gaps),
		Severity: notifier.SeverityWarning,
		FiredAt:  now,
	}
	return s.fireWithCooldown(ctx, "coverage_gap", alert)
}

// coverageBody lists the gap counties, truncating a long tail.
func coverageBody(gaps []string) string {
	const listed = 20
	if len(gaps) <= listed {
		return "No items in the last 48h for: " + strings.Join(gaps, ", ") + "."
	}
	return fmt.Sprintf("No items in the last 48h for: %s, and %d more.",
		strings.Join(gaps[:listed], ", "), len(gaps)-listed)
}

// RunFeedFailureCheck fires when any feed accumulated three or more
// errors over the last three hours.
func (s *Service) RunFeedFailureCheck(ctx context.Context) error {
	now := s.now().UTC()
	counts, err := s.runs.FailureCountsSince(ctx, now.Add(-feedFailureWindow))
	if err != nil {
		return fmt.Errorf("RunFeedFailureCheck: failure counts: %w", err)
	}

	var failing []string
	for feedID, count := range counts {
		if count >= feedFailureThreshold {
			failing = append(failing, feedID)
		}
	}
	if len(failing) == 0 {
		return nil
	}
	sort.Strings(failing)

	lines := make([]string, 0, len(failing))
	for _, feedID := range failing {
		lines = append(lines, fmt.Sprintf("%s (%d errors)", feedID, counts[feedID]))
	}

	alert := &notifier.Alert{
		Key:      "feed-failures-" + strings.Join(failing, "-"),
		Title:    fmt.Sprintf("%d feeds failing repeatedly", len(failing)),
		Body:     "Feeds with 3+ errors in the last 3h: " + strings.Join(lines, "; ") + ".",
		Severity: notifier.SeverityWarning,
		FiredAt:  now,
	}
	return s.fireWithCooldown(ctx, "feed_failures", alert)
}

// BreakingItem fires a breaking-news alert once per item. The item key
// makes the cooldown a once-ever latch for practical purposes.
func (s *Service) BreakingItem(ctx context.Context, item *entity.Item) error {
	severity := notifier.SeverityBreaking
	if item.AlertLevel == entity.AlertLevelEmergency {
		severity = notifier.SeverityEmergency
	}

	alert := &notifier.Alert{
		Key:      "breaking-" + item.ID,
		Title:    item.Title,
		Body:     breakingBody(item),
		Severity: severity,
		Links:    []notifier.AlertLink{{Title: item.Title, URL: item.URL}},
		FiredAt:  s.now().UTC(),
	}

	key := alert.Key
	last, err := s.log.LastFired(ctx, key)
	if err != nil {
		return fmt.Errorf("BreakingItem: cooldown check: %w", err)
	}
	if last != nil {
		// 同じ記事のアラートは一度だけ
		return nil
	}
	if err := s.log.RecordFired(ctx, key, alert.FiredAt); err != nil {
		return fmt.Errorf("BreakingItem: record fired: %w", err)
	}
	s.dispatch(ctx, "breaking", alert)
	return nil
}

func breakingBody(item *entity.Item) string {
	body := item.AISummary
	if body == "" {
		body = item.Summary
	}
	if body == "" {
		body = item.Title
	}
	return body
}

// fireWithCooldown fires the alert unless the same key fired within the
// cooldown. The boundary is inclusive: exactly cooldown elapsed fires.
// The read-then-insert race is acceptable because alerting runs as a
// singleton scheduler task.
func (s *Service) fireWithCooldown(ctx context.Context, alertType string, alert *notifier.Alert) error {
	last, err := s.log.LastFired(ctx, alert.Key)
	if err != nil {
		return fmt.Errorf("fireWithCooldown: cooldown check: %w", err)
	}
	if last != nil && alert.FiredAt.Sub(*last) < s.cooldown {
		s.logger.Debug("alert suppressed by cooldown",
			slog.String("key", alert.Key),
			slog.Time("last_fired", *last))
		metrics.RecordAlertFired(alertType, "suppressed")
		return nil
	}

	if err := s.log.RecordFired(ctx, alert.Key, alert.FiredAt); err != nil {
		return fmt.Errorf("fireWithCooldown: record fired: %w", err)
	}
	s.dispatch(ctx, alertType, alert)
	return nil
}

// dispatch sends the alert over every channel in parallel, best-effort.
// A channel failure logs and never raises.
func (s *Service) dispatch(ctx context.Context, alertType string, alert *notifier.Alert) {
	if len(s.channels) == 0 {
		s.logger.Info("alert fired with no delivery channels configured",
			slog.String("key", alert.Key),
			slog.String("title", alert.Title))
		return
	}

	var wg sync.WaitGroup
	for _, channel := range s.channels {
		channel := channel
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := channel.Notify(ctx, alert); err != nil {
				s.logger.Warn("alert channel failed",
					slog.String("channel", channel.Name()),
					slog.String("key", alert.Key),
					slog.Any("error", err))
				metrics.RecordAlertFired(alertType, "channel_error")
				return
			}
			metrics.RecordAlertFired(alertType, "sent")
		}()
	}
	wg.Wait()

	s.logger.Info("alert dispatched",
		slog.String("key", alert.Key),
		slog.String("title", alert.Title),
		slog.Int("channels", len(s.channels)))
}
