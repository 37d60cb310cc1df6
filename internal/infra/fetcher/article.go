package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/Br0ck25/kynews-sub003/internal/resilience/circuitbreaker"
	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

// Article is the result of fetching and extracting a story page.
type Article struct {
	// Text is the extracted article body as plain text.
	Text string

	// HTML is the raw page HTML, kept for paywall signal scanning.
	HTML string

	// WordCount is the word count of Text.
	WordCount int
}

// ArticleFetcher fetches article pages and extracts readable story text
// using the Mozilla Readability algorithm. The enrichment worker uses
// it when a feed entry's description is too short to summarize or to
// geotag reliably.
//
// Features:
//   - SSRF prevention via URL validation
//   - Circuit breaker so one dead origin does not stall a batch
//   - Size limiting to prevent memory exhaustion
//   - Redirect validation
//
// Thread safety: ArticleFetcher is safe for concurrent use.
type ArticleFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         ArticleFetchConfig
	userAgent      string
}

// NewArticleFetcher creates an ArticleFetcher with the given configuration.
// An empty userAgent falls back to DefaultUserAgent.
func NewArticleFetcher(config ArticleFetchConfig, userAgent string) *ArticleFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "article-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	})

	f := &ArticleFetcher{
		circuitBreaker: cb,
		config:         config,
		userAgent:      userAgent,
	}

	f.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	return f
}

// FetchArticle fetches the page at urlStr and extracts the story text.
//
// The fetch runs through the circuit breaker; when too many origins in
// a row fail, subsequent calls return gobreaker.ErrOpenState without a
// network round trip and the queue entry is retried on a later sweep.
func (f *ArticleFetcher) FetchArticle(ctx context.Context, urlStr string) (*Article, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return nil, err
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		return nil, err
	}

	return result.(*Article), nil
}

// doFetch performs the HTTP request and readability extraction.
func (f *ArticleFetcher) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: request exceeded %v", ErrTimeout, f.config.Timeout)
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return nil, urlErr.Err
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLen))
		return nil, &UpstreamHTTPError{
			Status:  resp.StatusCode,
			URL:     urlStr,
			Snippet: string(snippet),
		}
	}

	limitedReader := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(htmlBytes)) > f.config.MaxBodySize {
		return nil, fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			ErrBodyTooLarge, len(htmlBytes), f.config.MaxBodySize)
	}

	// The final URL may differ from urlStr after redirects; readability
	// resolves relative links against it.
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		parsedURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}

	htmlReader := io.NopCloser(bytes.NewReader(htmlBytes))
	article, err := readability.FromReader(htmlReader, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadabilityFailed, err)
	}

	body := article.TextContent
	if body == "" {
		if article.Content == "" {
			return nil, fmt.Errorf("%w: no readable content found", ErrReadabilityFailed)
		}
		slog.Debug("using article Content instead of TextContent",
			slog.String("url", urlStr),
			slog.Int("content_length", len(article.Content)))
		body = article.Content
	}

	return &Article{
		Text:      body,
		HTML:      string(htmlBytes),
		WordCount: text.CountWords(body),
	}, nil
}
