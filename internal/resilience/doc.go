// Package resilience provides reliability and fault tolerance patterns for the pipeline.
// It includes implementations of circuit breakers and retry logic to keep
// slow or failing outbound services (the AI summarizer, alert webhooks and
// email providers) from stalling the scheduler tasks that call them.
//
// The package supports:
//   - Circuit breakers for external API calls (summarizer, webhooks, email)
//   - Retry logic with exponential backoff and jitter
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.SummarizerConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return callExternalService()
//	})
//
//	retryConfig := retry.DefaultConfig()
//	err := retry.WithBackoff(ctx, retryConfig, func() error {
//	    return performOperation()
//	})
package resilience
