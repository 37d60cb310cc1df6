package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordFeedProcessed(t *testing.T) {
	tests := []struct {
		name   string
		status string
	}{
		{name: "success", status: "success"},
		{name: "not modified", status: "not_modified"},
		{name: "http error", status: "http_error"},
		{name: "parse error", status: "parse_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordFeedProcessed(tt.status)
			})
		})
	}
}

func TestRecordItemsUpserted(t *testing.T) {
	tests := []struct {
		name  string
		count int
	}{
		{name: "single item", count: 1},
		{name: "full feed", count: 30},
		{name: "zero items", count: 0},
		{name: "negative ignored", count: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordItemsUpserted(tt.count)
			})
		})
	}
}

func TestRecordSummary(t *testing.T) {
	tests := []struct {
		name    string
		success bool
	}{
		{name: "success", success: true},
		{name: "failure", success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordSummary(tt.success)
			})
		})
	}
}

func TestRecordFeedFetch(t *testing.T) {
	tests := []struct {
		name      string
		fetchMode string
		duration  time.Duration
	}{
		{name: "rss feed", fetchMode: "rss", duration: 2 * time.Second},
		{name: "scrape feed", fetchMode: "scrape", duration: 5 * time.Second},
		{name: "facebook page", fetchMode: "facebook-page", duration: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordFeedFetch(tt.fetchMode, tt.duration)
			})
		})
	}
}

func TestRecordFeedFetchError(t *testing.T) {
	tests := []struct {
		name      string
		feedID    string
		errorType string
	}{
		{name: "http error", feedID: "wkyt", errorType: "http"},
		{name: "parse error", feedID: "herald-leader", errorType: "parse"},
		{name: "timeout", feedID: "bing-fallback-owsley", errorType: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordFeedFetchError(tt.feedID, tt.errorType)
			})
		})
	}
}

func TestUpdateQueueDepth(t *testing.T) {
	tests := []struct {
		name   string
		status string
		depth  int
	}{
		{name: "pending backlog", status: "pending", depth: 42},
		{name: "empty", status: "done", depth: 0},
		{name: "failed entries", status: "failed", depth: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				UpdateQueueDepth(tt.status, tt.depth)
			})
		})
	}
}

func TestRecordBreakingDetected(t *testing.T) {
	tests := []struct {
		name     string
		priority string
	}{
		{name: "emergency", priority: "emergency"},
		{name: "breaking", priority: "breaking"},
		{name: "developing", priority: "developing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordBreakingDetected(tt.priority)
			})
		})
	}
}

func TestRecordAlertFired(t *testing.T) {
	tests := []struct {
		name      string
		alertType string
		result    string
	}{
		{name: "coverage gap sent", alertType: "coverage-gap", result: "sent"},
		{name: "feed failures cooled down", alertType: "feed-failures", result: "skipped_cooldown"},
		{name: "breaking failed", alertType: "breaking", result: "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordAlertFired(tt.alertType, tt.result)
			})
		})
	}
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		duration  time.Duration
	}{
		{name: "ranked listing", operation: "list_ranked", duration: 10 * time.Millisecond},
		{name: "item upsert", operation: "upsert_item", duration: 5 * time.Millisecond},
		{name: "slow query", operation: "coverage_report", duration: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordDBQuery(tt.operation, tt.duration)
			})
		})
	}
}

func TestMetricsFunctions_AllCallable(t *testing.T) {
	// Test that all functions can be called in sequence without panic
	assert.NotPanics(t, func() {
		RecordFeedProcessed("success")
		RecordItemsUpserted(10)
		RecordItemsRejected(2)
		RecordIngestRunDuration(30 * time.Second)
		RecordFeedFetch("rss", 2*time.Second)
		RecordFeedFetchError("wkyt", "http")
		UpdateQueueDepth("pending", 12)
		RecordEnrichmentOutcome("done")
		RecordEnrichmentDuration(3 * time.Second)
		RecordBodyFetchSuccess(time.Second, 20480)
		RecordBodyFetchFailed(time.Second)
		RecordBodyFetchSkipped()
		RecordSummary(true)
		RecordSummarizationDuration(time.Second)
		RecordDuplicateDetected()
		RecordPaywallDetected()
		RecordBreakingDetected("breaking")
		RecordBillLinks(2)
		RecordAlertFired("breaking", "sent")
		UpdateItemsTotal(1000)
		UpdateFeedsTotal(120)
		RecordSchoolEventsUpserted(40)
		RecordDBQuery("list_ranked", 10*time.Millisecond)
		UpdateDBConnectionStats(2, 3)
	})
}
