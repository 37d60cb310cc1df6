package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Br0ck25/kynews-sub003/internal/resilience/retry"
)

// defaultPostmarkURL is the Postmark single-send endpoint.
const defaultPostmarkURL = "https://api.postmarkapp.com/email"

// PostmarkConfig contains configuration for Postmark email delivery.
type PostmarkConfig struct {
	// ServerToken is the Postmark server API token.
	ServerToken string

	// From is the sender address (must be a verified signature).
	From string

	// To is the recipient list.
	To []string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration
}

// PostmarkNotifier delivers alerts as transactional email via Postmark.
type PostmarkNotifier struct {
	config      PostmarkConfig
	httpClient  *http.Client
	baseURL     string
	retryConfig retry.Config
}

// NewPostmarkNotifier creates a PostmarkNotifier.
func NewPostmarkNotifier(config PostmarkConfig) *PostmarkNotifier {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &PostmarkNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		baseURL:     defaultPostmarkURL,
		retryConfig: retry.EmailConfig(),
	}
}

// Name implements Notifier.
func (p *PostmarkNotifier) Name() string { return "postmark" }

// postmarkRequest is the Postmark send payload.
type postmarkRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
	HtmlBody string `json:"HtmlBody"`
}

// Notify implements Notifier.
func (p *PostmarkNotifier) Notify(ctx context.Context, alert *Alert) error {
	requestID := uuid.New().String()

	slog.Info("Starting Postmark alert delivery",
		slog.String("request_id", requestID),
		slog.String("alert_key", alert.Key),
		slog.Int("recipients", len(p.config.To)))

	err := retry.WithBackoff(ctx, p.retryConfig, func() error {
		return p.send(ctx, alert)
	})
	if err != nil {
		slog.Error("Postmark alert failed",
			slog.String("request_id", requestID),
			slog.String("alert_key", alert.Key),
			slog.Any("error", err))
		return fmt.Errorf("Notify: postmark delivery: %w", err)
	}

	slog.Info("Postmark alert delivered",
		slog.String("request_id", requestID),
		slog.String("alert_key", alert.Key))
	return nil
}

func (p *PostmarkNotifier) send(ctx context.Context, alert *Alert) error {
	payload, err := json.Marshal(postmarkRequest{
		From:     p.config.From,
		To:       strings.Join(p.config.To, ","),
		Subject:  emailSubject(alert),
		TextBody: renderEmailText(alert),
		HtmlBody: renderEmailHTML(alert),
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", p.config.ServerToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return &retry.HTTPError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("postmark: %s", string(body)),
	}
}
