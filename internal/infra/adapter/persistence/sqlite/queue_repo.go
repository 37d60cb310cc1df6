package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// QueueRepo implements repository.QueueRepository using SQLite.
type QueueRepo struct{ db *sql.DB }

// NewQueueRepo creates a new SQLite-backed enrichment queue repository.
func NewQueueRepo(db *sql.DB) repository.QueueRepository {
	return &QueueRepo{db: db}
}

func (repo *QueueRepo) Enqueue(ctx context.Context, itemID string) error {
	// 既にキューにある場合は現在の状態を維持する
	const query = `
INSERT INTO ingestion_queue (item_id, status, created_at, updated_at)
VALUES (?, 'pending', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT(item_id) DO NOTHING
`
	if _, err := repo.db.ExecContext(ctx, query, itemID); err != nil {
		return fmt.Errorf("Enqueue: ExecContext: %w", err)
	}
	return nil
}

// ClaimPending moves up to limit pending rows to body_fetching inside
// one transaction, so concurrent workers never claim the same item.
// Claiming increments attempts: a crashed worker must still burn one
// attempt or the row would cycle through the unstick sweep forever.
func (repo *QueueRepo) ClaimPending(ctx context.Context, limit int) ([]*entity.QueueEntry, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
SELECT item_id, status, attempts, last_error, created_at, updated_at
FROM ingestion_queue
WHERE status = 'pending'
ORDER BY created_at ASC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending: QueryContext: %w", err)
	}

	entries := make([]*entity.QueueEntry, 0, limit)
	for rows.Next() {
		var entry entity.QueueEntry
		var lastError sql.NullString
		if err := rows.Scan(&entry.ItemID, &entry.Status, &entry.Attempts,
			&lastError, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("ClaimPending: Scan: %w", err)
		}
		entry.LastError = lastError.String
		entries = append(entries, &entry)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("ClaimPending: Close: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimPending: rows.Err: %w", err)
	}

	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, `
UPDATE ingestion_queue SET
	status     = 'body_fetching',
	attempts   = attempts + 1,
	updated_at = CURRENT_TIMESTAMP
WHERE item_id = ?
`, entry.ItemID); err != nil {
			return nil, fmt.Errorf("ClaimPending: claim: %w", err)
		}
		entry.Status = entity.QueueBodyFetching
		entry.Attempts++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ClaimPending: Commit: %w", err)
	}
	return entries, nil
}

func (repo *QueueRepo) SetStatus(ctx context.Context, itemID, status string) error {
	const query = `
UPDATE ingestion_queue SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE item_id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, status, itemID); err != nil {
		return fmt.Errorf("SetStatus: ExecContext: %w", err)
	}
	return nil
}

// Fail records the message and returns the row to pending for another
// try. Attempts were already burned at claim time; a row out of
// attempts parks as failed.
func (repo *QueueRepo) Fail(ctx context.Context, itemID, message string) error {
	const query = `
UPDATE ingestion_queue SET
	last_error = ?,
	status     = CASE WHEN attempts >= ? THEN 'failed' ELSE 'pending' END,
	updated_at = CURRENT_TIMESTAMP
WHERE item_id = ?
`
	if _, err := repo.db.ExecContext(ctx, query, message, entity.MaxQueueAttempts, itemID); err != nil {
		return fmt.Errorf("Fail: ExecContext: %w", err)
	}
	return nil
}

// Unstick reverts rows stuck mid-pipeline since before the cutoff.
// Rows out of attempts park as failed instead of cycling forever.
func (repo *QueueRepo) Unstick(ctx context.Context, cutoff time.Time) (int, error) {
	const query = `
UPDATE ingestion_queue SET
	status     = CASE WHEN attempts >= ? THEN 'failed' ELSE 'pending' END,
	updated_at = CURRENT_TIMESTAMP
WHERE status IN ('body_fetching', 'summarizing') AND updated_at < ?
`
	result, err := repo.db.ExecContext(ctx, query, entity.MaxQueueAttempts, cutoff)
	if err != nil {
		return 0, fmt.Errorf("Unstick: ExecContext: %w", err)
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("Unstick: RowsAffected: %w", err)
	}
	return int(moved), nil
}

func (repo *QueueRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := repo.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM ingestion_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("CountByStatus: Scan: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CountByStatus: rows.Err: %w", err)
	}
	return counts, nil
}
