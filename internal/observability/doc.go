// Package observability provides production-grade observability infrastructure
// including structured logging and Prometheus metrics for the pipeline worker.
//
// This package centralizes observability concerns to enable:
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring ingestion and enrichment
//   - Per-run tracing via run IDs in log attributes
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//
// Example usage:
//
//	import (
//	    "github.com/Br0ck25/kynews-sub003/internal/observability/logging"
//	    "github.com/Br0ck25/kynews-sub003/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.RecordFeedProcessed("success")
//	}
package observability
