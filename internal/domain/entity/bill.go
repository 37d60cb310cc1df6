package entity

import "time"

// KyBill is one entry of the Kentucky legislature bill registry.
// Number is the canonical form, e.g. "HB 123" or "SB 1".
type KyBill struct {
	Number    string
	Title     string
	Session   string
	URL       string
	UpdatedAt time.Time
}

// ArticleBill links an item to a registered bill it references.
type ArticleBill struct {
	ItemID     string
	BillNumber string
	CreatedAt  time.Time
}
