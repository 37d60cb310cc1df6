package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// AlertLogRepo implements repository.AlertLogRepository using SQLite.
// The log backs the per-key alert cooldown.
type AlertLogRepo struct{ db *sql.DB }

// NewAlertLogRepo creates a new SQLite-backed alert log repository.
func NewAlertLogRepo(db *sql.DB) repository.AlertLogRepository {
	return &AlertLogRepo{db: db}
}

func (repo *AlertLogRepo) LastFired(ctx context.Context, alertKey string) (*time.Time, error) {
	const query = `
SELECT fired_at FROM alert_log
WHERE alert_key = ?
ORDER BY fired_at DESC
LIMIT 1
`
	var firedAt time.Time
	err := repo.db.QueryRowContext(ctx, query, alertKey).Scan(&firedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("LastFired: QueryRowContext: %w", err)
	}
	return &firedAt, nil
}

func (repo *AlertLogRepo) RecordFired(ctx context.Context, alertKey string, at time.Time) error {
	const query = `INSERT INTO alert_log (alert_key, fired_at) VALUES (?, ?)`
	if _, err := repo.db.ExecContext(ctx, query, alertKey, at); err != nil {
		return fmt.Errorf("RecordFired: ExecContext: %w", err)
	}
	return nil
}
