package metrics

import (
	"time"
)

// RecordFeedProcessed records the terminal status of one processed feed.
// Status should be one of: success, not_modified, http_error, parse_error.
func RecordFeedProcessed(status string) {
	FeedsProcessedTotal.WithLabelValues(status).Inc()
}

// RecordItemsUpserted records the number of items written during one feed pass.
func RecordItemsUpserted(count int) {
	if count > 0 {
		ItemsUpsertedTotal.Add(float64(count))
	}
}

// RecordItemsRejected records items dropped by the Kentucky relevance gate.
func RecordItemsRejected(count int) {
	if count > 0 {
		ItemsRejectedTotal.Add(float64(count))
	}
}

// RecordIngestRunDuration records the wall time of a full ingestion run.
func RecordIngestRunDuration(duration time.Duration) {
	IngestRunDuration.Observe(duration.Seconds())
}

// RecordFeedFetch records per-feed fetch timing by fetch mode.
func RecordFeedFetch(fetchMode string, duration time.Duration) {
	FeedFetchDuration.WithLabelValues(fetchMode).Observe(duration.Seconds())
}

// RecordFeedFetchError records an error during feed fetching.
// The error type should be a coarse class such as "http", "parse" or "timeout".
func RecordFeedFetchError(feedID, errorType string) {
	FeedFetchErrors.WithLabelValues(feedID, errorType).Inc()
}

// UpdateQueueDepth updates the queue depth gauge for one status.
// This gauge should be refreshed at the start of each enrichment run.
func UpdateQueueDepth(status string, depth int) {
	QueueDepth.WithLabelValues(status).Set(float64(depth))
}

// RecordEnrichmentOutcome records a queue entry reaching a terminal status.
// Status should be one of: done, failed, rejected_short.
func RecordEnrichmentOutcome(status string) {
	EnrichmentOutcomesTotal.WithLabelValues(status).Inc()
}

// RecordEnrichmentDuration records the time taken to enrich one item.
func RecordEnrichmentDuration(duration time.Duration) {
	EnrichmentDuration.Observe(duration.Seconds())
}

// RecordBodyFetchSuccess records a successful article body fetch.
// This tracks both the duration and size of fetched content.
func RecordBodyFetchSuccess(duration time.Duration, size int) {
	BodyFetchAttemptsTotal.WithLabelValues("success").Inc()
	BodyFetchDuration.Observe(duration.Seconds())
	BodyFetchSize.Observe(float64(size))
}

// RecordBodyFetchFailed records a failed article body fetch.
func RecordBodyFetchFailed(duration time.Duration) {
	BodyFetchAttemptsTotal.WithLabelValues("failure").Inc()
	BodyFetchDuration.Observe(duration.Seconds())
}

// RecordBodyFetchSkipped records a skipped body fetch.
// Facebook-sourced items never fetch bodies, so they land here.
func RecordBodyFetchSkipped() {
	BodyFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordSummary records the result of a summarization attempt.
// Status should be either "success" or "failure".
func RecordSummary(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	SummariesTotal.WithLabelValues(status).Inc()
}

// RecordSummarizationDuration records the time taken to summarize an item.
func RecordSummarizationDuration(duration time.Duration) {
	SummarizationDuration.Observe(duration.Seconds())
}

// RecordDuplicateDetected records one item marked as a near-duplicate.
func RecordDuplicateDetected() {
	DuplicatesDetectedTotal.Inc()
}

// RecordPaywallDetected records one item classified as paywalled.
func RecordPaywallDetected() {
	PaywallsDetectedTotal.Inc()
}

// RecordBreakingDetected records a breaking classification by priority.
func RecordBreakingDetected(priority string) {
	BreakingDetectedTotal.WithLabelValues(priority).Inc()
}

// RecordBillLinks records newly created article-to-bill links.
func RecordBillLinks(count int) {
	if count > 0 {
		BillLinksTotal.Add(float64(count))
	}
}

// RecordAlertFired records one alert dispatch attempt.
// Result should be "sent", "skipped_cooldown" or "failed".
func RecordAlertFired(alertType, result string) {
	AlertsFiredTotal.WithLabelValues(alertType, result).Inc()
}

// UpdateItemsTotal updates the total count of items in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateItemsTotal(count int) {
	ItemsTotal.Set(float64(count))
}

// UpdateFeedsTotal updates the total count of enabled feeds in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateFeedsTotal(count int) {
	FeedsTotal.Set(float64(count))
}

// RecordSchoolEventsUpserted records calendar events written during a sync.
func RecordSchoolEventsUpserted(count int) {
	if count > 0 {
		SchoolEventsUpsertedTotal.Add(float64(count))
	}
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "list_ranked", "upsert_item").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
