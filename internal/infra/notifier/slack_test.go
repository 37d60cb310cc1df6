package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlert() *Alert {
	return &Alert{
		Key:      "breaking-Pike",
		Title:    "Breaking news in Pike County",
		Body:     "Tornado warning issued for Pike County until 8:45 PM.",
		Severity: SeverityBreaking,
		Links: []AlertLink{
			{Title: "Tornado warning issued", URL: "https://example.com/tornado"},
		},
		FiredAt: time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC),
	}
}

func TestSlackNotify_Success(t *testing.T) {
	var gotPayload SlackWebhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	n := NewSlackNotifier(SlackConfig{WebhookURL: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, n.Notify(context.Background(), testAlert()))

	assert.Equal(t, "Breaking news in Pike County", gotPayload.Text)
	// section + links + context
	require.Len(t, gotPayload.Blocks, 3)

	assert.Equal(t, "section", gotPayload.Blocks[0].Type)
	assert.Contains(t, gotPayload.Blocks[0].Text.Text, ":red_circle:")
	assert.Contains(t, gotPayload.Blocks[0].Text.Text, "Tornado warning issued for Pike County")

	assert.Contains(t, gotPayload.Blocks[1].Text.Text, "<https://example.com/tornado|Tornado warning issued>")

	assert.Equal(t, "context", gotPayload.Blocks[2].Type)
	assert.Contains(t, gotPayload.Blocks[2].Elements[0].Text, "breaking-Pike")
}

func TestSlackNotify_NoLinksOmitsLinkBlock(t *testing.T) {
	var gotPayload SlackWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	alert := testAlert()
	alert.Links = nil

	n := NewSlackNotifier(SlackConfig{WebhookURL: server.URL})
	require.NoError(t, n.Notify(context.Background(), alert))
	assert.Len(t, gotPayload.Blocks, 2)
}

func TestSlackNotify_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no_service"))
	}))
	defer server.Close()

	n := NewSlackNotifier(SlackConfig{WebhookURL: server.URL, Timeout: 2 * time.Second})
	err := n.Notify(context.Background(), testAlert())
	require.Error(t, err)

	var clientErr *ClientError
	assert.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 1, calls)
}

func TestSlackNotify_ServerErrorRetried(t *testing.T) {
	// Linear backoff starts at 5s, so cancel the context to observe the
	// retry attempt without waiting.
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	n := NewSlackNotifier(SlackConfig{WebhookURL: server.URL, Timeout: 2 * time.Second})
	err := n.Notify(ctx, testAlert())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExtractRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, 5*time.Second, extractRetryAfter(resp))

	resp.Header.Set("Retry-After", "12")
	assert.Equal(t, 12*time.Second, extractRetryAfter(resp))

	resp.Header.Set("Retry-After", "soonish")
	assert.Equal(t, 5*time.Second, extractRetryAfter(resp))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(&ServerError{StatusCode: 502}))
	assert.False(t, isRetryableError(&ClientError{StatusCode: 404}))
	assert.False(t, isRetryableError(&RateLimitError{RetryAfter: time.Second}))
	assert.True(t, isRetryableError(assert.AnError))
}

func TestSeverityEmoji(t *testing.T) {
	assert.Equal(t, ":rotating_light:", severityEmoji(SeverityEmergency))
	assert.Equal(t, ":red_circle:", severityEmoji(SeverityBreaking))
	assert.Equal(t, ":warning:", severityEmoji(SeverityWarning))
	assert.Equal(t, ":information_source:", severityEmoji(SeverityInfo))
}
