// Package notifier delivers pipeline alerts to operators. It defines
// the Notifier interface with implementations for Slack incoming
// webhooks and transactional email (Postmark, Mailgun). The alert
// usecase fans one alert out to every configured channel; a channel
// failure never blocks the others.
package notifier

import (
	"context"
	"time"
)

// Alert severities, ordered by urgency.
const (
	SeverityEmergency = "emergency"
	SeverityBreaking  = "breaking"
	SeverityWarning   = "warning"
	SeverityInfo      = "info"
)

// AlertLink is a link rendered at the bottom of an alert.
type AlertLink struct {
	Title string
	URL   string
}

// Alert is one operator notification.
type Alert struct {
	// Key is the alert's cooldown key (for example "breaking-Pike").
	// Channels include it so operators can trace the ledger row.
	Key string

	// Title is the one-line headline.
	Title string

	// Body is the alert detail, plain text with newlines.
	Body string

	// Severity is one of the Severity constants.
	Severity string

	// Links point at the articles or feeds behind the alert.
	Links []AlertLink

	// FiredAt is when the alert was raised.
	FiredAt time.Time
}

// Notifier sends one alert to one channel.
// Implementations handle rate limiting, retries, and error logging
// internally; the caller only learns whether delivery ultimately
// succeeded.
type Notifier interface {
	// Notify delivers the alert. It returns non-nil only after the
	// channel's own retry budget is exhausted.
	Notify(ctx context.Context, alert *Alert) error

	// Name identifies the channel in logs ("slack", "postmark", "mailgun").
	Name() string
}
