package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/newsroom/pkg/cmd"
	"github.com/dukex/newsroom/pkg/events"
	"github.com/dukex/newsroom/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDeliverer struct {
	mu       sync.Mutex
	messages []string
}

func (d *recordingDeliverer) Notify(_ context.Context, _ *models.Trigger, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.messages = append(d.messages, message)

	return nil
}

func (d *recordingDeliverer) delivered() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.messages)
}

func TestRun_DeliversUntilCancelled(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	eventBus, err := cmd.NewEventBus("gochannel", nil, "newsroom-notifier-test", logger)
	require.NoError(t, err)

	t.Cleanup(func() { _ = eventBus.Close() })

	deliverer := &recordingDeliverer{}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, eventBus, deliverer, logger)
	}()

	trigger := models.Trigger{Type: "slack", Config: map[string]any{"webhook_url": "https://example.com"}}

	require.Eventually(t, func() bool {
		err := eventBus.Publish(ctx, trigger.Type, events.NewNotificationRequested(trigger, "moved to Review"))
		if err != nil {
			return false
		}

		return deliverer.delivered() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("notifier did not stop")
	}

	deliverer.mu.Lock()
	defer deliverer.mu.Unlock()

	assert.Contains(t, deliverer.messages, "moved to Review")
}
