// Package legislature runs the nightly bill sweep: items from the last
// seven days are re-scanned for bill references against the current
// registry. It catches articles that mentioned a bill before the bill
// was registered.
package legislature

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/bills"
	"github.com/Br0ck25/kynews-sub003/internal/observability/metrics"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

const (
	sweepWindow = 7 * 24 * time.Hour
	sweepLimit  = 1000
)

// Service re-links recent items against the bill registry.
type Service struct {
	items  repository.ItemRepository
	bills  repository.BillRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new legislature sweep Service.
func NewService(items repository.ItemRepository, billRepo repository.BillRepository, logger *slog.Logger) *Service {
	return &Service{items: items, bills: billRepo, logger: logger, now: time.Now}
}

// Run scans the sweep window and inserts any missing article-bill
// links. Linking is idempotent, so re-running over the same window is
// harmless.
func (s *Service) Run(ctx context.Context) (int, error) {
	items, err := s.items.ListRecentWithText(ctx, s.now().UTC().Add(-sweepWindow), sweepLimit)
	if err != nil {
		return 0, fmt.Errorf("Run: list recent items: %w", err)
	}

	totalLinked := 0
	for _, item := range items {
		text := item.Title + " " + item.Summary + " " + item.BodyText
		numbers := bills.Extract(text)
		if len(numbers) == 0 {
			continue
		}

		registered, err := s.bills.Registered(ctx, numbers)
		if err != nil {
			return totalLinked, fmt.Errorf("Run: registry check: %w", err)
		}

		linked := 0
		for _, number := range numbers {
			if !registered[number] {
				continue
			}
			if err := s.bills.Link(ctx, item.ID, number); err != nil {
				s.logger.Warn("failed to link bill",
					slog.String("item_id", item.ID),
					slog.String("bill", number),
					slog.Any("error", err))
				continue
			}
			linked++
		}
		if linked == 0 {
			continue
		}
		if err := s.items.AddCategory(ctx, item.ID, "legislature"); err != nil {
			s.logger.Warn("failed to add legislature category",
				slog.String("item_id", item.ID), slog.Any("error", err))
		}
		totalLinked += linked
	}

	if totalLinked > 0 {
		metrics.RecordBillLinks(totalLinked)
	}
	s.logger.Info("legislature sweep completed",
		slog.Int("items_scanned", len(items)),
		slog.Int("links_added", totalLinked))
	return totalLinked, nil
}
