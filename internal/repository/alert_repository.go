package repository

import (
	"context"
	"time"
)

type AlertLogRepository interface {
	// LastFired returns when the key last fired, or nil if it never has.
	LastFired(ctx context.Context, alertKey string) (*time.Time, error)
	RecordFired(ctx context.Context, alertKey string, at time.Time) error
}
