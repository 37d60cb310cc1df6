package summarizer

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

const (
	// defaultSummaryLimit is the target summary length in characters.
	defaultSummaryLimit = 600

	// metaDescriptionLimit is the SEO description budget. Search engines
	// truncate around 160 characters.
	metaDescriptionLimit = 160

	// minCharLimit is the minimum allowed character limit for summaries.
	minCharLimit = 100

	// maxCharLimit is the maximum allowed character limit for summaries.
	maxCharLimit = 5000
)

// ValidateCharacterLimit validates that a summary character limit is
// within the valid range (100-5000).
func ValidateCharacterLimit(limit int) error {
	if limit < minCharLimit {
		return fmt.Errorf("character limit %d is below minimum %d", limit, minCharLimit)
	}
	if limit > maxCharLimit {
		return fmt.Errorf("character limit %d exceeds maximum %d", limit, maxCharLimit)
	}
	return nil
}

// loadSummaryLimit reads SUMMARIZER_CHAR_LIMIT, falling back to the
// default on a missing, malformed or out-of-range value.
func loadSummaryLimit() int {
	envLimit := os.Getenv("SUMMARIZER_CHAR_LIMIT")
	if envLimit == "" {
		return defaultSummaryLimit
	}

	parsed, err := strconv.Atoi(envLimit)
	if err != nil {
		slog.Warn("Invalid SUMMARIZER_CHAR_LIMIT format, using default",
			slog.String("value", envLimit),
			slog.Int("default", defaultSummaryLimit),
			slog.String("error", err.Error()))
		return defaultSummaryLimit
	}

	if err := ValidateCharacterLimit(parsed); err != nil {
		slog.Warn("SUMMARIZER_CHAR_LIMIT out of valid range, using default",
			slog.Int("value", parsed),
			slog.Int("default", defaultSummaryLimit))
		return defaultSummaryLimit
	}

	return parsed
}
