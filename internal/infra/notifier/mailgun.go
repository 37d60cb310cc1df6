package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Br0ck25/kynews-sub003/internal/resilience/retry"
)

// defaultMailgunBase is the Mailgun US region API root.
const defaultMailgunBase = "https://api.mailgun.net/v3"

// MailgunConfig contains configuration for Mailgun email delivery.
type MailgunConfig struct {
	// APIKey is the Mailgun private API key.
	APIKey string

	// Domain is the sending domain registered with Mailgun.
	Domain string

	// From is the sender address.
	From string

	// To is the recipient list.
	To []string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration
}

// MailgunNotifier delivers alerts as transactional email via Mailgun.
// It is the fallback channel when Postmark is not configured.
type MailgunNotifier struct {
	config      MailgunConfig
	httpClient  *http.Client
	baseURL     string
	retryConfig retry.Config
}

// NewMailgunNotifier creates a MailgunNotifier.
func NewMailgunNotifier(config MailgunConfig) *MailgunNotifier {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &MailgunNotifier{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		baseURL:     defaultMailgunBase,
		retryConfig: retry.EmailConfig(),
	}
}

// Name implements Notifier.
func (m *MailgunNotifier) Name() string { return "mailgun" }

// Notify implements Notifier.
func (m *MailgunNotifier) Notify(ctx context.Context, alert *Alert) error {
	requestID := uuid.New().String()

	slog.Info("Starting Mailgun alert delivery",
		slog.String("request_id", requestID),
		slog.String("alert_key", alert.Key),
		slog.Int("recipients", len(m.config.To)))

	err := retry.WithBackoff(ctx, m.retryConfig, func() error {
		return m.send(ctx, alert)
	})
	if err != nil {
		slog.Error("Mailgun alert failed",
			slog.String("request_id", requestID),
			slog.String("alert_key", alert.Key),
			slog.Any("error", err))
		return fmt.Errorf("Notify: mailgun delivery: %w", err)
	}

	slog.Info("Mailgun alert delivered",
		slog.String("request_id", requestID),
		slog.String("alert_key", alert.Key))
	return nil
}

func (m *MailgunNotifier) send(ctx context.Context, alert *Alert) error {
	form := url.Values{}
	form.Set("from", m.config.From)
	form.Set("to", strings.Join(m.config.To, ","))
	form.Set("subject", emailSubject(alert))
	form.Set("text", renderEmailText(alert))

	endpoint := fmt.Sprintf("%s/%s/messages", m.baseURL, m.config.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", m.config.APIKey)

	resp, err := m.httpClient.Do(req)
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
		Message:    fmt.Sprintf("mailgun: %s", string(body)),
	}
}
