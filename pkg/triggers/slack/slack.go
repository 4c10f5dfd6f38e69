// Package slack posts stage notifications to Slack incoming webhooks.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"
)

const TriggerType = "slack"

// Sender posts messages to the webhook_url of a trigger's config.
type Sender struct {
	client   *http.Client
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

type Option func(s *Sender)

// WithHTTPClient replaces the default client, which has a 10s timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		s.client = client
	}
}

// WithRetry makes the sender try up to attempts times on retryable Slack responses and
// transport errors.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Sender) {
		if attempts > 0 {
			s.attempts = attempts
		}

		s.delay = delay
	}
}

func NewSender(logger *slog.Logger, opts ...Option) *Sender {
	s := &Sender{
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 1,
		logger:   logger.With("module", "slack_sender"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Sender) Type() string {
	return TriggerType
}

func (s *Sender) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"webhook_url": map[string]any{
				"type":    "string",
				"pattern": "^https?://",
			},
			"channel":    map[string]any{"type": "string"},
			"username":   map[string]any{"type": "string"},
			"icon_emoji": map[string]any{"type": "string"},
			"message":    map[string]any{"type": "string"},
		},
		"required":             []any{"webhook_url"},
		"additionalProperties": false,
	}
}

func (s *Sender) Send(ctx context.Context, config map[string]any, message string) error {
	url, _ := config["webhook_url"].(string)
	if url == "" {
		return fmt.Errorf("slack trigger has no webhook_url")
	}

	msg := &slackapi.WebhookMessage{Text: message}
	msg.Channel, _ = config["channel"].(string)
	msg.Username, _ = config["username"].(string)
	msg.IconEmoji, _ = config["icon_emoji"].(string)

	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			s.logger.InfoContext(ctx, "Retrying slack webhook", "attempt", attempt, "max", s.attempts)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff(lastErr)):
			}
		}

		err := slackapi.PostWebhookCustomHTTPContext(ctx, url, s.client, msg)
		if err == nil {
			return nil
		}

		lastErr = fmt.Errorf("slack webhook failed: %w", err)

		if !retryable(ctx, err) {
			break
		}
	}

	return lastErr
}

// backoff honors the Retry-After of a rate-limited response.
func (s *Sender) backoff(err error) time.Duration {
	var limited *slackapi.RateLimitedError
	if errors.As(err, &limited) && limited.RetryAfter > s.delay {
		return limited.RetryAfter
	}

	return s.delay
}

// retryable reports whether a failed post is worth another attempt. Slack status errors
// decide for themselves; anything else is a transport failure.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}

	return true
}
