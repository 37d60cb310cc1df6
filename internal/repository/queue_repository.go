package repository

import (
	"context"
	"time"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

type QueueRepository interface {
	// Enqueue adds a pending row for the item. Items already queued keep
	// their current status.
	Enqueue(ctx context.Context, itemID string) error
	// ClaimPending moves up to limit pending rows to body_fetching and
	// returns them, oldest first.
	ClaimPending(ctx context.Context, limit int) ([]*entity.QueueEntry, error)
	SetStatus(ctx context.Context, itemID, status string) error
	// Fail increments attempts and records the message. The row returns to
	// pending until attempts reach entity.MaxQueueAttempts, then parks as
	// failed.
	Fail(ctx context.Context, itemID, message string) error
	// Unstick reverts rows stuck in body_fetching or summarizing since
	// before the cutoff. Rows out of attempts park as failed. Returns how
	// many rows moved.
	Unstick(ctx context.Context, cutoff time.Time) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}
