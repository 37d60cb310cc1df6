package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// SchoolEventRepo implements repository.SchoolEventRepository using SQLite.
type SchoolEventRepo struct{ db *sql.DB }

// NewSchoolEventRepo creates a new SQLite-backed school event repository.
func NewSchoolEventRepo(db *sql.DB) repository.SchoolEventRepository {
	return &SchoolEventRepo{db: db}
}

func (repo *SchoolEventRepo) Upsert(ctx context.Context, event *entity.SchoolEvent) error {
	const query = `
INSERT INTO school_events (uid, county, title, start_at, end_at, location, url)
VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
ON CONFLICT(uid) DO UPDATE SET
	county   = excluded.county,
	title    = excluded.title,
	start_at = excluded.start_at,
	end_at   = excluded.end_at,
	location = excluded.location,
	url      = excluded.url
`
	if _, err := repo.db.ExecContext(ctx, query,
		event.UID, event.County, event.Title, event.StartAt, event.EndAt,
		event.Location, event.URL,
	); err != nil {
		return fmt.Errorf("Upsert: ExecContext: %w", err)
	}
	return nil
}

func (repo *SchoolEventRepo) ListByCounty(ctx context.Context, county string, limit int) ([]*entity.SchoolEvent, error) {
	const query = `
SELECT uid, county, title, start_at, end_at, location, url
FROM school_events
WHERE county = ?
ORDER BY start_at ASC
LIMIT ?
`
	rows, err := repo.db.QueryContext(ctx, query, county, limit)
	if err != nil {
		return nil, fmt.Errorf("ListByCounty: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]*entity.SchoolEvent, 0, limit)
	for rows.Next() {
		var event entity.SchoolEvent
		var endAt sql.NullTime
		var location, url sql.NullString
		if err := rows.Scan(&event.UID, &event.County, &event.Title,
			&event.StartAt, &endAt, &location, &url); err != nil {
			return nil, fmt.Errorf("ListByCounty: Scan: %w", err)
		}
		if endAt.Valid {
			t := endAt.Time
			event.EndAt = &t
		}
		event.Location = location.String
		event.URL = url.String
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByCounty: rows.Err: %w", err)
	}
	return events, nil
}
