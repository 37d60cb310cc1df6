package repository

import (
	"context"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

type BillRepository interface {
	Upsert(ctx context.Context, bill *entity.KyBill) error
	// Registered filters the given bill numbers down to the ones present
	// in the registry. Mentions of unregistered bills are never linked.
	Registered(ctx context.Context, numbers []string) (map[string]bool, error)
	// Link records that an item references a bill. Linking the same pair
	// twice is a no-op.
	Link(ctx context.Context, itemID, billNumber string) error
	LinkedBills(ctx context.Context, itemID string) ([]string, error)
}
