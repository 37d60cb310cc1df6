package entity

import "time"

// Fetch run statuses.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusFailed  = "failed"
)

// Per-feed metric statuses within one run.
const (
	FeedRunOK          = "ok"
	FeedRunError       = "error"
	FeedRunNotModified = "not_modified"
)

// FetchRun is the header row written around one orchestrator invocation.
type FetchRun struct {
	ID          string
	Source      string
	Status      string
	StartedAt   time.Time
	FinishedAt  *time.Time
	DetailsJSON string
}

// FeedRunMetric records the outcome of one feed inside a run.
type FeedRunMetric struct {
	RunID         string
	FeedID        string
	Status        string
	HTTPStatus    int
	DurationMS    int64
	ItemsSeen     int
	ItemsUpserted int
	ErrorMessage  string
}
