// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all pipeline metrics including:
//   - Ingestion metrics (feeds processed, items upserted, run duration)
//   - Enrichment metrics (queue depth, body fetches, outcomes)
//   - Classification metrics (paywall, breaking, duplicates, bill links)
//   - Alerting and database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint of the worker's metrics server.
//
// Example usage:
//
//	import "github.com/Br0ck25/kynews-sub003/internal/observability/metrics"
//
//	func processFeed(feedID string) {
//	    start := time.Now()
//	    // ... fetch and parse ...
//	    metrics.RecordFeedProcessed(feedID, "success")
//	    metrics.RecordIngestRunDuration(time.Since(start))
//	}
package metrics
