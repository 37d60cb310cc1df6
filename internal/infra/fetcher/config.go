package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ArticleFetchConfig holds the configuration for full-article body fetching.
// The enrichment worker fetches article pages when the feed entry carries
// too little text to summarize; this config controls security, size and
// timeout limits for those fetches.
type ArticleFetchConfig struct {
	// Enabled controls whether article body fetching is enabled.
	// When false the worker summarizes feed descriptions directly.
	// Default: true
	Enabled bool

	// Threshold is the minimum feed description length (in characters)
	// before fetching. Entries whose description is already at least this
	// long skip the body fetch.
	// Default: 1200
	Threshold int

	// Timeout is the maximum duration for a single article request.
	// Default: 20s
	Timeout time.Duration

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// Enforced during response reading, not from the Content-Length header.
	// Default: 1572864 (1.5MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Each redirect target is re-validated for SSRF.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs blocks URLs that resolve to private, loopback or
	// link-local addresses. Should always be true in production.
	// Default: true
	DenyPrivateIPs bool
}

// DefaultArticleFetchConfig returns production-ready defaults.
// The 1.5MB body cap fits every article page seen from Kentucky outlets
// while rejecting video-heavy pages that readability cannot use anyway.
func DefaultArticleFetchConfig() ArticleFetchConfig {
	return ArticleFetchConfig{
		Enabled:        true,
		Threshold:      1200,
		Timeout:        20 * time.Second,
		MaxBodySize:    1536 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks that the configuration values are valid and safe.
func (c *ArticleFetchConfig) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)             // 1KB
	maxBodySize := int64(16 * 1024 * 1024) // 16MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	return nil
}

// LoadArticleFetchConfig loads configuration from environment variables,
// falling back to defaults for unset values.
//
// Environment variables:
//   - ARTICLE_FETCH_ENABLED: "true" or "false" (default: true)
//   - ARTICLE_FETCH_THRESHOLD: integer characters (default: 1200)
//   - ARTICLE_FETCH_TIMEOUT: duration string, e.g. "20s" (default: 20s)
//   - ARTICLE_FETCH_MAX_BODY_SIZE: integer bytes (default: 1572864)
//   - ARTICLE_FETCH_MAX_REDIRECTS: integer (default: 5)
//   - ARTICLE_FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
func LoadArticleFetchConfig() (ArticleFetchConfig, error) {
	cfg := DefaultArticleFetchConfig()

	if val := os.Getenv("ARTICLE_FETCH_ENABLED"); val != "" {
		cfg.Enabled = val == "true"
	}

	if val := os.Getenv("ARTICLE_FETCH_THRESHOLD"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.Threshold = parsed
		} else {
			return cfg, fmt.Errorf("invalid ARTICLE_FETCH_THRESHOLD: %v", err)
		}
	}

	if val := os.Getenv("ARTICLE_FETCH_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			cfg.Timeout = parsed
		} else {
			return cfg, fmt.Errorf("invalid ARTICLE_FETCH_TIMEOUT: %v (expected format: '20s', '1m')", err)
		}
	}

	if val := os.Getenv("ARTICLE_FETCH_MAX_BODY_SIZE"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.MaxBodySize = parsed
		} else {
			return cfg, fmt.Errorf("invalid ARTICLE_FETCH_MAX_BODY_SIZE: %v", err)
		}
	}

	if val := os.Getenv("ARTICLE_FETCH_MAX_REDIRECTS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.MaxRedirects = parsed
		} else {
			return cfg, fmt.Errorf("invalid ARTICLE_FETCH_MAX_REDIRECTS: %v", err)
		}
	}

	if val := os.Getenv("ARTICLE_FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
