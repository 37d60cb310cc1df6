package entity

import "time"

// Ingestion queue statuses. A row is created in pending when its item is
// first upserted and only ever moves forward; done, failed and
// rejected_short are terminal.
const (
	QueuePending       = "pending"
	QueueBodyFetching  = "body_fetching"
	QueueSummarizing   = "summarizing"
	QueueDone          = "done"
	QueueFailed        = "failed"
	QueueRejectedShort = "rejected_short"
)

// MaxQueueAttempts bounds enrichment retries. Entries stuck mid-pipeline are
// reverted to pending by the recovery sweep until they exhaust this budget.
const MaxQueueAttempts = 3

// QueueEntry represents one item's enrichment state.
type QueueEntry struct {
	ItemID    string
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the entry has reached a final status.
func (q *QueueEntry) Terminal() bool {
	switch q.Status {
	case QueueDone, QueueFailed, QueueRejectedShort:
		return true
	default:
		return false
	}
}
