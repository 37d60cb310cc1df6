package repository

import (
	"context"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
)

type SchoolEventRepository interface {
	// Upsert writes the event keyed by UID.
	Upsert(ctx context.Context, event *entity.SchoolEvent) error
	ListByCounty(ctx context.Context, county string, limit int) ([]*entity.SchoolEvent, error)
}
