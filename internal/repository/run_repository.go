package repository

import (
	"context"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

type RunRepository interface {
	// StartRun writes the header row for an orchestrator invocation.
	StartRun(ctx context.Context, run *entity.FetchRun) error
	FinishRun(ctx context.Context, runID, status, detailsJSON string, finishedAt time.Time) error
	RecordFeedMetric(ctx context.Context, metric *entity.FeedRunMetric) error
	// RecordError appends to the fetch error log. feedID may be empty for
	// errors not tied to a feed.
	RecordError(ctx context.Context, feedID string, at time.Time, message string) error
	// FailureCountsSince returns per-feed error counts from run metrics in
	// the window, for the feed-failure alert.
	FailureCountsSince(ctx context.Context, since time.Time) (map[string]int, error)
}
