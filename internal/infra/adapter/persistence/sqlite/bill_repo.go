package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Br0ck25/kynews-sub003/internal/domain/entity"
	"github.com/Br0ck25/kynews-sub003/internal/repository"
)

// BillRepo implements repository.BillRepository using SQLite.
type BillRepo struct{ db *sql.DB }

// NewBillRepo creates a new SQLite-backed bill registry repository.
func NewBillRepo(db *sql.DB) repository.BillRepository {
	return &BillRepo{db: db}
}

func (repo *BillRepo) Upsert(ctx context.Context, bill *entity.KyBill) error {
	const query = `
INSERT INTO ky_bills (number, title, session, url, updated_at)
VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)
ON CONFLICT(number) DO UPDATE SET
	title      = COALESCE(excluded.title, ky_bills.title),
	session    = COALESCE(excluded.session, ky_bills.session),
	url        = COALESCE(excluded.url, ky_bills.url),
	updated_at = excluded.updated_at
`
	if _, err := repo.db.ExecContext(ctx, query,
		bill.Number, bill.Title, bill.Session, bill.URL, bill.UpdatedAt,
	); err != nil {
		return fmt.Errorf("Upsert: ExecContext: %w", err)
	}
	return nil
}

// Registered filters the given bill numbers down to the ones present in
// the registry.
func (repo *BillRepo) Registered(ctx context.Context, numbers []string) (map[string]bool, error) {
	if len(numbers) == 0 {
		return make(map[string]bool), nil
	}

	// SQLiteのプレースホルダ上限は999
	const maxPlaceholders = 999
	if len(numbers) > maxPlaceholders {
		return nil, fmt.Errorf("Registered: too many numbers (%d > %d)", len(numbers), maxPlaceholders)
	}

	args := make([]interface{}, len(numbers))
	for i, n := range numbers {
		args[i] = n
	}

	query := fmt.Sprintf("SELECT number FROM ky_bills WHERE number IN (%s)",
		strings.TrimSuffix(strings.Repeat("?,", len(numbers)), ","))

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Registered: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	registered := make(map[string]bool)
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("Registered: Scan: %w", err)
		}
		registered[number] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Registered: rows.Err: %w", err)
	}
	return registered, nil
}

func (repo *BillRepo) Link(ctx context.Context, itemID, billNumber string) error {
	const query = `
INSERT OR IGNORE INTO article_bills (item_id, bill_number) VALUES (?, ?)
`
	if _, err := repo.db.ExecContext(ctx, query, itemID, billNumber); err != nil {
		return fmt.Errorf("Link: ExecContext: %w", err)
	}
	return nil
}

func (repo *BillRepo) LinkedBills(ctx context.Context, itemID string) ([]string, error) {
	const query = `
SELECT bill_number FROM article_bills WHERE item_id = ? ORDER BY bill_number
`
	rows, err := repo.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("LinkedBills: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var numbers []string
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("LinkedBills: Scan: %w", err)
		}
		numbers = append(numbers, number)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LinkedBills: rows.Err: %w", err)
	}
	return numbers, nil
}
