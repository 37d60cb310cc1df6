package entity

import "time"

// SchoolEvent is one calendar entry synced from a county district ICS feed.
// UID is the iCalendar UID when present, otherwise "county|start|title".
type SchoolEvent struct {
	UID      string
	County   string
	Title    string
	StartAt  time.Time
	EndAt    *time.Time
	Location string
	URL      string
}
