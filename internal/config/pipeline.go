// Package config aggregates environment configuration for the pipeline.
// Each component receives the slice of configuration it needs at
// construction time; nothing reads process environment after startup.
package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Br0ck25/kynews-sub003/pkg/config"
)

// PipelineConfig holds the tunables of the ingestion and enrichment
// pipeline. All values load from environment variables with fail-open
// defaults; validation catches values that would stall the pipeline.
type PipelineConfig struct {
	// DBPath is the SQLite database file path.
	DBPath string

	// UserAgent identifies the crawler to feed servers.
	UserAgent string

	// MaxFeedsPerRun caps how many feeds one orchestrator invocation polls.
	MaxFeedsPerRun int

	// MaxItemsPerFeed caps how many items one feed contributes per poll.
	MaxItemsPerFeed int

	// FeedTimeout bounds one conditional feed fetch.
	FeedTimeout time.Duration

	// ArticleTimeout bounds one article body fetch.
	ArticleTimeout time.Duration

	// WorkerBatch is how many queue rows one enrichment pass claims.
	WorkerBatch int

	// WorkerConcurrency is how many items enrich in parallel.
	WorkerConcurrency int

	// AlertCooldown is the minimum gap between alerts sharing a key.
	AlertCooldown time.Duration

	// AlertOnBreaking enables per-item breaking-news alerts.
	AlertOnBreaking bool
}

// SummarizerConfig holds the Cloudflare Workers AI settings. The client
// is disabled when AccountID or APIToken is missing; the pipeline then
// keeps RSS-provided summaries.
type SummarizerConfig struct {
	AccountID string
	APIToken  string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Enabled reports whether credentials are present.
func (c SummarizerConfig) Enabled() bool {
	return c.AccountID != "" && c.APIToken != ""
}

// AlertChannelsConfig holds the delivery channel credentials. Channels
// without credentials stay disabled; the alert service dispatches to
// whichever subset is configured.
type AlertChannelsConfig struct {
	SlackWebhookURL string

	EmailTo   []string
	EmailFrom string

	PostmarkToken string

	MailgunAPIKey string
	MailgunDomain string
}

// LoadPipelineConfig loads pipeline configuration from the environment.
func LoadPipelineConfig() (*PipelineConfig, error) {
	cfg := &PipelineConfig{
		DBPath:            pkgconfig.GetEnvString("DB_PATH", "data/kynews.db"),
		UserAgent:         pkgconfig.GetEnvString("RSS_USER_AGENT", "KyNewsBot/1.0 (+https://kynews.example)"),
		MaxFeedsPerRun:    pkgconfig.GetEnvInt("MAX_FEEDS_PER_RUN", 200),
		MaxItemsPerFeed:   pkgconfig.GetEnvInt("MAX_INGEST_ITEMS_PER_FEED", 30),
		FeedTimeout:       pkgconfig.GetEnvDuration("FEED_FETCH_TIMEOUT", 15*time.Second),
		ArticleTimeout:    pkgconfig.GetEnvDuration("ARTICLE_FETCH_TIMEOUT", 20*time.Second),
		WorkerBatch:       pkgconfig.GetEnvInt("BODY_WORKER_BATCH", 10),
		WorkerConcurrency: pkgconfig.GetEnvInt("BODY_WORKER_CONCURRENCY", 3),
		AlertCooldown:     time.Duration(pkgconfig.GetEnvInt("ALERT_COOLDOWN_HOURS", 6)) * time.Hour,
		AlertOnBreaking:   pkgconfig.GetEnvBool("ALERT_ON_BREAKING", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration correctness.
func (c *PipelineConfig) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MaxFeedsPerRun < 1 {
		return fmt.Errorf("MAX_FEEDS_PER_RUN must be positive, got %d", c.MaxFeedsPerRun)
	}
	if c.MaxItemsPerFeed < 1 {
		return fmt.Errorf("MAX_INGEST_ITEMS_PER_FEED must be positive, got %d", c.MaxItemsPerFeed)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.FeedTimeout); err != nil {
		return fmt.Errorf("FEED_FETCH_TIMEOUT: %w", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.ArticleTimeout); err != nil {
		return fmt.Errorf("ARTICLE_FETCH_TIMEOUT: %w", err)
	}
	if c.WorkerBatch < 1 {
		return fmt.Errorf("BODY_WORKER_BATCH must be positive, got %d", c.WorkerBatch)
	}
	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 32 {
		return fmt.Errorf("BODY_WORKER_CONCURRENCY must be between 1 and 32, got %d", c.WorkerConcurrency)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.AlertCooldown); err != nil {
		return fmt.Errorf("ALERT_COOLDOWN_HOURS: %w", err)
	}
	return nil
}

// LoadSummarizerConfig loads the Cloudflare Workers AI configuration.
// Missing credentials are not an error: summarization is optional.
func LoadSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		AccountID: pkgconfig.GetEnvString("CF_ACCOUNT_ID", ""),
		APIToken:  pkgconfig.GetEnvString("CF_AI_API_TOKEN", ""),
		Model:     pkgconfig.GetEnvString("CF_SUMMARY_MODEL", "@cf/meta/llama-3.1-8b-instruct"),
		MaxTokens: pkgconfig.GetEnvInt("CF_SUMMARY_MAX_TOKENS", 512),
		Timeout:   pkgconfig.GetEnvDuration("CF_SUMMARY_TIMEOUT", 60*time.Second),
	}
}

// LoadAlertChannelsConfig loads delivery channel credentials.
func LoadAlertChannelsConfig() AlertChannelsConfig {
	return AlertChannelsConfig{
		SlackWebhookURL: pkgconfig.GetEnvString("SLACK_WEBHOOK_URL", ""),
		EmailTo:         pkgconfig.GetEnvStringList("ALERT_EMAIL_TO", nil),
		EmailFrom:       pkgconfig.GetEnvString("ALERT_EMAIL_FROM", ""),
		PostmarkToken:   pkgconfig.GetEnvString("POSTMARK_API_TOKEN", ""),
		MailgunAPIKey:   pkgconfig.GetEnvString("MAILGUN_API_KEY", ""),
		MailgunDomain:   pkgconfig.GetEnvString("MAILGUN_DOMAIN", ""),
	}
}
