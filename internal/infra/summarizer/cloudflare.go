package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/Br0ck25/kynews-sub003/internal/config"
	"github.com/Br0ck25/kynews-sub003/internal/resilience/circuitbreaker"
	"github.com/Br0ck25/kynews-sub003/internal/resilience/retry"
	"github.com/Br0ck25/kynews-sub003/internal/utils/text"
)

// defaultBaseURL is the Cloudflare API root.
const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// maxInputChars caps the article text sent to the model. Workers AI
// models have small context windows compared to the frontier APIs.
const maxInputChars = 10000

// Cloudflare implements Summarizer using Cloudflare Workers AI.
// It includes circuit breaker and retry logic, a configurable summary
// character limit, and metrics recording.
type Cloudflare struct {
	httpClient      *http.Client
	baseURL         string
	config          config.SummarizerConfig
	summaryLimit    int
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	metricsRecorder SummaryMetricsRecorder
}

// NewCloudflare creates a Cloudflare summarizer from the given credentials.
func NewCloudflare(cfg config.SummarizerConfig) *Cloudflare {
	summaryLimit := loadSummaryLimit()

	slog.Info("Initialized Cloudflare Workers AI summarizer",
		slog.String("model", cfg.Model),
		slog.Int("summary_limit", summaryLimit),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &Cloudflare{
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		baseURL:         defaultBaseURL,
		config:          cfg,
		summaryLimit:    summaryLimit,
		circuitBreaker:  circuitbreaker.New(circuitbreaker.SummarizerConfig()),
		retryConfig:     retry.SummarizerConfig(),
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}
}

// Summarize generates a summary and meta description for one article.
// It uses circuit breaker and retry logic for reliability.
func (c *Cloudflare) Summarize(ctx context.Context, title, body string) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var result *Summary

	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		cbResult, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doSummarize(ctx, title, body)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("workers ai circuit breaker open, request rejected",
					slog.String("service", "cloudflare-ai"),
					slog.String("state", c.circuitBreaker.State().String()))
				return fmt.Errorf("workers ai unavailable: circuit breaker open")
			}
			return err
		}

		result = cbResult.(*Summary)
		return nil
	})

	if retryErr != nil {
		c.metricsRecorder.RecordOutcome(false)
		return nil, fmt.Errorf("Summarize: workers ai failed after retries: %w", retryErr)
	}

	c.metricsRecorder.RecordOutcome(true)
	return result, nil
}

// aiRequest is the Workers AI chat request body.
type aiRequest struct {
	Messages  []aiMessage `json:"messages"`
	MaxTokens int         `json:"max_tokens,omitempty"`
}

type aiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// aiResponse is the Workers AI response envelope.
type aiResponse struct {
	Result struct {
		Response string `json:"response"`
	} `json:"result"`
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// modelOutput is the JSON shape the prompt asks the model to emit.
type modelOutput struct {
	Summary         string `json:"summary"`
	MetaDescription string `json:"meta_description"`
}

// buildPrompt constructs the summarization instruction.
func (c *Cloudflare) buildPrompt(title, body string) string {
	return fmt.Sprintf(`Summarize this local news article for Kentucky readers.

Respond with only a JSON object, no prose before or after:
{"summary": "<summary in at most %d characters>", "meta_description": "<one sentence under %d characters>"}

Title: %s

Article:
%s`, c.summaryLimit, metaDescriptionLimit, title, body)
}

// doSummarize performs the actual API call without retry or circuit breaker.
func (c *Cloudflare) doSummarize(ctx context.Context, title, body string) (*Summary, error) {
	requestID := uuid.New().String()

	truncated := body
	if len(body) > maxInputChars {
		truncated = body[:maxInputChars]
		slog.Warn("article text truncated for workers ai",
			slog.String("request_id", requestID),
			slog.Int("original_length", len(body)),
			slog.Int("truncated_length", len(truncated)))
	}

	reqBody, err := json.Marshal(aiRequest{
		Messages: []aiMessage{
			{Role: "system", Content: "You write concise, factual news summaries. Output only JSON."},
			{Role: "user", Content: c.buildPrompt(title, truncated)},
		},
		MaxTokens: c.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("doSummarize: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.config.AccountID, c.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("doSummarize: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	slog.InfoContext(ctx, "Starting summarization",
		slog.String("request_id", requestID),
		slog.String("model", c.config.Model),
		slog.Int("input_length", text.CountRunes(truncated)))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doSummarize: workers ai request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("doSummarize: read response: %w", err)
	}

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		slog.ErrorContext(ctx, "Summarization failed",
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", duration))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("workers ai status %d", resp.StatusCode),
		}
	}

	var envelope aiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("doSummarize: decode response: %w", err)
	}

	if !envelope.Success {
		msg := "unknown error"
		if len(envelope.Errors) > 0 {
			msg = envelope.Errors[0].Message
		}
		return nil, fmt.Errorf("doSummarize: workers ai error: %s", msg)
	}

	if strings.TrimSpace(envelope.Result.Response) == "" {
		return nil, ErrEmptyResponse
	}

	summary := parseModelOutput(envelope.Result.Response)

	summaryLength := text.CountRunes(summary.Summary)
	withinLimit := summaryLength <= c.summaryLimit

	slog.InfoContext(ctx, "Summarization completed",
		slog.String("request_id", requestID),
		slog.Int("summary_length", summaryLength),
		slog.Bool("within_limit", withinLimit),
		slog.Duration("duration", duration))

	c.metricsRecorder.RecordLength(summaryLength)
	c.metricsRecorder.RecordDuration(duration)
	c.metricsRecorder.RecordCompliance(withinLimit)
	if !withinLimit {
		c.metricsRecorder.RecordLimitExceeded()
	}

	return summary, nil
}

// parseModelOutput extracts the summary fields from the model response.
// Models wrap JSON in code fences or leak prose around it often enough
// that the parser scans for the outermost object; when no JSON parses,
// the whole response becomes the summary and the meta description is
// derived by truncation.
func parseModelOutput(response string) *Summary {
	raw := strings.TrimSpace(response)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			var out modelOutput
			if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err == nil && out.Summary != "" {
				if out.MetaDescription == "" {
					out.MetaDescription = text.TruncateRunes(out.Summary, metaDescriptionLimit)
				}
				return &Summary{
					Summary:         strings.TrimSpace(out.Summary),
					MetaDescription: strings.TrimSpace(text.TruncateRunes(out.MetaDescription, metaDescriptionLimit)),
				}
			}
		}
	}

	return &Summary{
		Summary:         raw,
		MetaDescription: text.TruncateRunes(raw, metaDescriptionLimit),
	}
}
