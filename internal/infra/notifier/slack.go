package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SlackConfig contains configuration for Slack webhook delivery.
type SlackConfig struct {
	// WebhookURL is the Slack Incoming Webhook URL (carries its own auth token).
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack calls.
	Timeout time.Duration
}

// SlackNotifier delivers alerts to Slack via an Incoming Webhook using
// Block Kit formatting.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewSlackNotifier creates a SlackNotifier.
// The rate limiter matches the Slack webhook limit of one message per
// second.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	if config.Timeout <= 0 {
		config.Timeout = 8 * time.Second
	}
	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 1),
	}
}

// Name implements Notifier.
func (s *SlackNotifier) Name() string { return "slack" }

// SlackWebhookPayload is the JSON payload sent to the webhook.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock is one Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`
	Text     *SlackTextObject  `json:"text,omitempty"`
	Elements []SlackTextObject `json:"elements,omitempty"`
}

// SlackTextObject is a Block Kit text object.
type SlackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	// Block Kit limits
	maxSectionTextLength = 3000
	maxContextTextLength = 2000
	maxFallbackLength    = 150

	slackTruncationSuffix = "..."
)

// buildBlockKitPayload renders an alert as Block Kit blocks:
// a section with the severity marker, title and body, an optional
// section of article links, and a context line with the cooldown key
// and timestamp.
func (s *SlackNotifier) buildBlockKitPayload(alert *Alert) SlackWebhookPayload {
	fallbackText := truncateText(alert.Title, maxFallbackLength, slackTruncationSuffix)

	sectionText := fmt.Sprintf("%s *%s*\n\n%s", severityEmoji(alert.Severity), alert.Title, alert.Body)
	sectionText = truncateText(sectionText, maxSectionTextLength, slackTruncationSuffix)

	blocks := []SlackBlock{{
		Type: "section",
		Text: &SlackTextObject{
			Type: "mrkdwn",
			Text: sectionText,
		},
	}}

	if len(alert.Links) > 0 {
		var lines []string
		for _, link := range alert.Links {
			lines = append(lines, fmt.Sprintf("• <%s|%s>", link.URL, link.Title))
		}
		linksText := truncateText(strings.Join(lines, "\n"), maxSectionTextLength, slackTruncationSuffix)
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackTextObject{
				Type: "mrkdwn",
				Text: linksText,
			},
		})
	}

	contextText := fmt.Sprintf("%s • %s", alert.Key, alert.FiredAt.UTC().Format(time.RFC3339))
	blocks = append(blocks, SlackBlock{
		Type: "context",
		Elements: []SlackTextObject{{
			Type: "mrkdwn",
			Text: truncateText(contextText, maxContextTextLength, slackTruncationSuffix),
		}},
	})

	return SlackWebhookPayload{
		Text:   fallbackText,
		Blocks: blocks,
	}
}

// sendWebhookRequest posts the alert once.
//
// Error types:
//   - 429: RateLimitError (retryable, carries retry_after)
//   - other 4xx: ClientError (non-retryable)
//   - 5xx: ServerError (retryable)
func (s *SlackNotifier) sendWebhookRequest(ctx context.Context, alert *Alert) error {
	payload := s.buildBlockKitPayload(alert)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "Slack rate limit exceeded",
			RetryAfter: extractRetryAfter(resp),
		}
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API client error: %s", string(body)),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Slack API server error: %s", string(body)),
		}
	}

	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// extractRetryAfter reads the Retry-After header, defaulting to 5s.
func extractRetryAfter(resp *http.Response) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}

// sendWebhookRequestWithRetry posts the alert with retry logic.
//
// Retry strategy:
//   - Max attempts: 2
//   - 429: sleep for retry_after, then retry
//   - 5xx / network errors: linear backoff
//   - other 4xx: fail immediately
func (s *SlackNotifier) sendWebhookRequestWithRetry(ctx context.Context, alert *Alert) error {
	const (
		maxAttempts = 2
		baseDelay   = 5 * time.Second
	)

	requestID, _ := ctx.Value(requestIDKey).(string)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.sendWebhookRequest(ctx, alert)

		if err == nil {
			slog.Info("Slack alert delivered",
				slog.String("request_id", requestID),
				slog.String("alert_key", alert.Key),
				slog.Int("attempt", attempt))
			return nil
		}

		lastErr = err

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("Slack rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.String("alert_key", alert.Key),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))

			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Error("Slack alert failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.String("alert_key", alert.Key),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxAttempts {
			delay := baseDelay * time.Duration(attempt)
			slog.Warn("Slack webhook request failed, retrying",
				slog.String("request_id", requestID),
				slog.String("alert_key", alert.Key),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	slog.Error("Slack alert failed after all retries",
		slog.String("request_id", requestID),
		slog.String("alert_key", alert.Key),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxAttempts))

	return fmt.Errorf("slack alert failed after %d attempts: %w", maxAttempts, lastErr)
}

// Notify implements Notifier.
func (s *SlackNotifier) Notify(ctx context.Context, alert *Alert) error {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	slog.Info("Starting Slack alert delivery",
		slog.String("request_id", requestID),
		slog.String("alert_key", alert.Key),
		slog.String("severity", alert.Severity))

	if err := s.rateLimiter.Allow(ctx); err != nil {
		slog.Error("Rate limiter error",
			slog.String("request_id", requestID),
			slog.String("alert_key", alert.Key),
			slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return s.sendWebhookRequestWithRetry(ctx, alert)
}
