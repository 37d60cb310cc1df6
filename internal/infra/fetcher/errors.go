package fetcher

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the fetcher package.
var (
	// ErrInvalidURL indicates the URL could not be parsed or uses a
	// disallowed scheme.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP indicates the hostname resolves to a private,
	// loopback or link-local address (SSRF prevention).
	ErrPrivateIP = errors.New("URL resolves to private IP")

	// ErrTooManyRedirects indicates the redirect chain exceeded the limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("request timeout")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrReadabilityFailed indicates article extraction produced no content.
	ErrReadabilityFailed = errors.New("readability extraction failed")
)

// UpstreamHTTPError represents a non-2xx response from an origin site.
// Snippet carries the start of the response body so feed failure logs
// can show what the origin actually returned (error pages, rate limit
// notices, Cloudflare challenges).
type UpstreamHTTPError struct {
	Status  int
	URL     string
	Snippet string
}

// Error implements the error interface.
func (e *UpstreamHTTPError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("upstream HTTP %d for %s: %s", e.Status, e.URL, e.Snippet)
	}
	return fmt.Sprintf("upstream HTTP %d for %s", e.Status, e.URL)
}

// IsNotFound reports whether the upstream returned 404 or 410.
func (e *UpstreamHTTPError) IsNotFound() bool {
	return e.Status == 404 || e.Status == 410
}
