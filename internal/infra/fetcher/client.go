package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultUserAgent identifies the crawler to origin sites.
const DefaultUserAgent = "KyNewsBot/1.0 (+https://kynews.example)"

// snippetLen is how much of an error response body is kept for logging.
const snippetLen = 200

// Options controls a single conditional GET.
type Options struct {
	// ETag and LastModified are the validators saved from the previous
	// successful fetch of this URL. When set (and Force is false) they
	// are sent as If-None-Match / If-Modified-Since.
	ETag         string
	LastModified string

	// Force skips the conditional headers so the origin always returns
	// a full body. Used by the manual refetch path.
	Force bool

	// Accept overrides the Accept header. Empty means feed types.
	Accept string

	// MaxBodySize caps the response body in bytes. Zero means no cap;
	// feed documents are fetched uncapped, HTML pages are capped.
	MaxBodySize int64

	// Timeout overrides the client default for this request.
	Timeout time.Duration
}

// Result is the outcome of a conditional GET.
type Result struct {
	// Status is the HTTP status code (200 or 304; other codes become
	// an *UpstreamHTTPError instead of a Result).
	Status int

	// NotModified is true when the origin answered 304. The caller
	// keeps its cached body and validators.
	NotModified bool

	// ETag and LastModified are the validators to save for the next
	// fetch. On a 304 they echo the ones that were sent.
	ETag         string
	LastModified string

	// Body is the response body as text. Empty on 304.
	Body string
}

// Client performs conditional GETs against feed and page URLs.
// It sends saved ETag / Last-Modified validators, understands 304
// responses, and surfaces non-2xx answers as *UpstreamHTTPError with a
// body snippet. It never retries; the scheduler's cadence is the retry
// loop for feeds, and enrichment has its own attempt counter.
//
// Thread safety: Client is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	timeout        time.Duration
	denyPrivateIPs bool
}

// NewClient creates a conditional GET client.
// An empty userAgent falls back to DefaultUserAgent.
func NewClient(userAgent string, timeout time.Duration, denyPrivateIPs bool) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		userAgent:      userAgent,
		timeout:        timeout,
		denyPrivateIPs: denyPrivateIPs,
	}

	c.httpClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), c.denyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	return c
}

// Fetch performs one conditional GET.
//
// A 200 returns the body and fresh validators. A 304 returns
// NotModified with the validators echoed back so the caller can write
// them through unchanged. Any other status returns *UpstreamHTTPError
// carrying the first part of the response body.
func (c *Client) Fetch(ctx context.Context, urlStr string, opts Options) (*Result, error) {
	if err := validateURL(urlStr, c.denyPrivateIPs); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if opts.Accept != "" {
		req.Header.Set("Accept", opts.Accept)
	} else {
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8")
	}

	if !opts.Force {
		if opts.ETag != "" {
			req.Header.Set("If-None-Match", opts.ETag)
		}
		if opts.LastModified != "" {
			req.Header.Set("If-Modified-Since", opts.LastModified)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: request exceeded %v", ErrTimeout, timeout)
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotModified {
		// Some origins drop validators on 304; echo the ones we sent.
		etag := resp.Header.Get("ETag")
		if etag == "" {
			etag = opts.ETag
		}
		lastModified := resp.Header.Get("Last-Modified")
		if lastModified == "" {
			lastModified = opts.LastModified
		}
		return &Result{
			Status:       resp.StatusCode,
			NotModified:  true,
			ETag:         etag,
			LastModified: lastModified,
		}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLen))
		return nil, &UpstreamHTTPError{
			Status:  resp.StatusCode,
			URL:     urlStr,
			Snippet: strings.TrimSpace(string(snippet)),
		}
	}

	var reader io.Reader = resp.Body
	if opts.MaxBodySize > 0 {
		reader = io.LimitReader(resp.Body, opts.MaxBodySize+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if opts.MaxBodySize > 0 && int64(len(body)) > opts.MaxBodySize {
		return nil, fmt.Errorf("%w: response size exceeds limit %d bytes", ErrBodyTooLarge, opts.MaxBodySize)
	}

	return &Result{
		Status:       resp.StatusCode,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Body:         string(body),
	}, nil
}
