// Package summarizer provides AI-powered article summarization.
// The production implementation calls Cloudflare Workers AI with
// reliability patterns (circuit breaker, retry) and records metrics
// for summary length and latency. A NoOp implementation covers
// deployments without AI credentials.
package summarizer

import (
	"context"
	"errors"
)

// Summary is the AI output persisted onto an item.
type Summary struct {
	// Summary is the reader-facing article summary.
	Summary string

	// MetaDescription is a short SEO description (under ~160 characters).
	MetaDescription string
}

// Summarizer generates a summary for one article.
type Summarizer interface {
	Summarize(ctx context.Context, title, body string) (*Summary, error)
}

// ErrEmptyResponse indicates the AI endpoint answered without usable text.
var ErrEmptyResponse = errors.New("summarizer returned empty response")
