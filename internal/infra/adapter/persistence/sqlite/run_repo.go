package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// RunRepo implements repository.RunRepository using SQLite.
type RunRepo struct{ db *sql.DB }

// NewRunRepo creates a new SQLite-backed run bookkeeping repository.
func NewRunRepo(db *sql.DB) repository.RunRepository {
	return &RunRepo{db: db}
}

func (repo *RunRepo) StartRun(ctx context.Context, run *entity.FetchRun) error {
	const query = `
INSERT INTO fetch_runs (id, source, status, started_at, details_json)
VALUES (?, ?, ?, ?, NULLIF(?, ''))
`
	if _, err := repo.db.ExecContext(ctx, query,
		run.ID, run.Source, run.Status, run.StartedAt, run.DetailsJSON,
	); err != nil {
		return fmt.Errorf("StartRun: ExecContext: %w", err)
	}
	return nil
}

func (repo *RunRepo) FinishRun(ctx context.Context, runID, status, detailsJSON string, finishedAt time.Time) error {
	const query = `
UPDATE fetch_runs SET status = ?, details_json = NULLIF(?, ''), finished_at = ?
WHERE id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, status, detailsJSON, finishedAt, runID); err != nil {
		return fmt.Errorf("FinishRun: ExecContext: %w", err)
	}
	return nil
}

func (repo *RunRepo) RecordFeedMetric(ctx context.Context, metric *entity.FeedRunMetric) error {
	const query = `
INSERT INTO feed_run_metrics
(run_id, feed_id, status, http_status, duration_ms, items_seen, items_upserted, error_message)
VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))
`
	if _, err := repo.db.ExecContext(ctx, query,
		metric.RunID, metric.FeedID, metric.Status, metric.HTTPStatus,
		metric.DurationMS, metric.ItemsSeen, metric.ItemsUpserted, metric.ErrorMessage,
	); err != nil {
		return fmt.Errorf("RecordFeedMetric: ExecContext: %w", err)
	}
	return nil
}

func (repo *RunRepo) RecordError(ctx context.Context, feedID string, at time.Time, message string) error {
	const query = `INSERT INTO fetch_errors (feed_id, at, error) VALUES (NULLIF(?, ''), ?, ?)`
	if _, err := repo.db.ExecContext(ctx, query, feedID, at, message); err != nil {
		return fmt.Errorf("RecordError: ExecContext: %w", err)
	}
	return nil
}

func (repo *RunRepo) FailureCountsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	const query = `
SELECT m.feed_id, COUNT(*)
FROM feed_run_metrics m
JOIN fetch_runs r ON r.id = m.run_id
WHERE m.status = 'error' AND r.started_at >= ?
GROUP BY m.feed_id
`
	rows, err := repo.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("FailureCountsSince: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var feedID string
		var count int
		if err := rows.Scan(&feedID, &count); err != nil {
			return nil, fmt.Errorf("FailureCountsSince: Scan: %w", err)
		}
		counts[feedID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FailureCountsSince: rows.Err: %w", err)
	}
	return counts, nil
}
