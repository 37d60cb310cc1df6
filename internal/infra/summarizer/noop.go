package summarizer

import (
	"context"
	"strings"

	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

// NoOp is a summarizer that derives a summary from the article text
// without calling any AI endpoint. Used when Workers AI credentials
// are missing and in tests; items summarized this way still get a
// usable summary and meta description from their opening paragraphs.
type NoOp struct{}

// NewNoOp creates a NoOp summarizer.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Summarize returns the start of the article body as the summary.
func (n *NoOp) Summarize(_ context.Context, title, body string) (*Summary, error) {
	source := strings.TrimSpace(body)
	if source == "" {
		source = strings.TrimSpace(title)
	}
	if source == "" {
		return nil, ErrEmptyResponse
	}

	summary := text.TruncateRunes(source, defaultSummaryLimit)
	if len(summary) < len(source) {
		summary += "..."
	}

	return &Summary{
		Summary:         summary,
		MetaDescription: text.TruncateRunes(source, metaDescriptionLimit),
	}, nil
}
