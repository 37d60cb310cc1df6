package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion metrics track feed fetching and item persistence
var (
	// FeedsProcessedTotal counts processed feeds by terminal status
	FeedsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeds_processed_total",
			Help: "Total number of feeds processed per terminal status",
		},
		[]string{"status"}, // success, not_modified, http_error, parse_error
	)

	// ItemsUpsertedTotal counts items written to the store
	ItemsUpsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_upserted_total",
			Help: "Total number of items inserted or updated",
		},
	)

	// ItemsRejectedTotal counts items dropped by the relevance gate
	ItemsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "items_rejected_total",
			Help: "Total number of items rejected as not Kentucky-relevant",
		},
	)

	// IngestRunDuration measures the duration of one full ingestion run
	IngestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Time taken by a full ingestion run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// FeedFetchDuration measures per-feed fetch and parse time
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Time taken to fetch and parse one feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"fetch_mode"},
	)

	// FeedFetchErrors counts errors during feed fetching
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of feed fetch errors",
		},
		[]string{"feed_id", "error_type"},
	)
)

// Enrichment metrics track the body worker pipeline
var (
	// QueueDepth tracks ingestion queue entries by status
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ingestion_queue_depth",
			Help: "Number of ingestion queue entries per status",
		},
		[]string{"status"},
	)

	// EnrichmentOutcomesTotal counts queue entries reaching a terminal status
	EnrichmentOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_outcomes_total",
			Help: "Total number of enrichment outcomes per terminal status",
		},
		[]string{"status"}, // done, failed, rejected_short
	)

	// EnrichmentDuration measures per-item enrichment time
	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrichment_duration_seconds",
			Help:    "Time taken to enrich one item",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// BodyFetchAttemptsTotal counts article body fetch attempts by result
	BodyFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "body_fetch_attempts_total",
			Help: "Total number of article body fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// BodyFetchDuration measures time to fetch article content
	BodyFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "body_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// BodyFetchSize measures fetched content size in bytes
	BodyFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "body_fetch_size_bytes",
			Help: "Fetched article content size in bytes",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800,
				25600, 51200, 102400, 204800, 409600, 819200, 1572864,
			},
		},
	)

	// SummariesTotal counts summarization outcomes
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summaries_total",
			Help: "Total number of summarization attempts",
		},
		[]string{"status"},
	)

	// SummarizationDuration measures time to summarize an item
	SummarizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarization_duration_seconds",
			Help:    "Time taken to summarize an item",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

// Classification metrics track enrichment decisions
var (
	// DuplicatesDetectedTotal counts items marked as near-duplicates
	DuplicatesDetectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "duplicates_detected_total",
			Help: "Total number of items marked as near-duplicates",
		},
	)

	// PaywallsDetectedTotal counts items classified as paywalled
	PaywallsDetectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paywalls_detected_total",
			Help: "Total number of items classified as paywalled",
		},
	)

	// BreakingDetectedTotal counts breaking classifications by priority
	BreakingDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breaking_detected_total",
			Help: "Total number of breaking classifications",
		},
		[]string{"priority"}, // emergency, breaking, developing
	)

	// BillLinksTotal counts article-to-bill links created
	BillLinksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bill_links_total",
			Help: "Total number of article-to-bill links created",
		},
	)
)

// Alerting and inventory metrics
var (
	// AlertsFiredTotal counts alerts dispatched by type and channel result
	AlertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_fired_total",
			Help: "Total number of alerts dispatched",
		},
		[]string{"type", "result"},
	)

	// ItemsTotal tracks total number of items in the database
	ItemsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "items_total",
			Help: "Total number of items in the database",
		},
	)

	// FeedsTotal tracks total number of enabled feeds in the database
	FeedsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feeds_total",
			Help: "Total number of enabled feeds in the database",
		},
	)

	// SchoolEventsUpsertedTotal counts calendar events written
	SchoolEventsUpsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "school_events_upserted_total",
			Help: "Total number of school calendar events inserted or updated",
		},
	)
)

// Database metrics track query performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordOperationDuration records the duration of a named database operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
