package slack

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSender_Send(t *testing.T) {
	var received slackapi.WebhookMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	sender := NewSender(discardLogger())

	err := sender.Send(t.Context(), map[string]any{
		"webhook_url": server.URL,
		"channel":     "#desk",
	}, "Story moved to Publish")
	require.NoError(t, err)

	assert.Equal(t, "Story moved to Publish", received.Text)
	assert.Equal(t, "#desk", received.Channel)
	assert.Empty(t, received.Username)
}

func TestSender_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(discardLogger(), WithRetry(3, 0))

	err := sender.Send(t.Context(), map[string]any{"webhook_url": server.URL}, "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSender_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no_service"))
	}))
	defer server.Close()

	sender := NewSender(discardLogger(), WithRetry(3, 0))

	err := sender.Send(t.Context(), map[string]any{"webhook_url": server.URL}, "hello")
	require.Error(t, err)

	var statusErr slackapi.StatusCodeError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSender_RetriesRateLimits(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(discardLogger(), WithRetry(2, 0))

	err := sender.Send(t.Context(), map[string]any{"webhook_url": server.URL}, "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSender_MissingWebhook(t *testing.T) {
	err := NewSender(discardLogger()).Send(t.Context(), map[string]any{}, "hello")
	require.Error(t, err)
}
