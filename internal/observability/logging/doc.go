// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the pipeline.
//
// Key features:
//   - JSON and text output formats
//   - Run ID propagation for scheduler invocations
//   - Context-aware logging
//   - Configurable log levels via LOG_LEVEL
//
// Example usage:
//
//	import "github.com/Br0ck25/kynews-sub003/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started", slog.String("version", "1.0"))
//	}
//
//	func runIngestion(ctx context.Context, runID string) {
//	    logger := logging.WithRunID(logging.FromContext(ctx), runID)
//	    logger.Info("ingestion run started")
//	}
package logging
