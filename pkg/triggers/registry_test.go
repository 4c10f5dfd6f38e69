package triggers_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/dukex/newsroom/pkg/triggers"
	"github.com/dukex/newsroom/pkg/triggers/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *triggers.Registry {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := triggers.NewRegistry(logger)
	registry.Register(slack.NewSender(logger))

	return registry
}

func TestRegistry_Validate(t *testing.T) {
	registry := newRegistry()

	tests := []struct {
		name    string
		trigger *models.Trigger
		want    error
	}{
		{
			name:    "valid slack trigger",
			trigger: &models.Trigger{Type: "slack", Config: map[string]any{"webhook_url": "https://hooks.slack.com/services/T/B/X"}},
		},
		{
			name: "valid with message template",
			trigger: &models.Trigger{Type: "slack", Config: map[string]any{
				"webhook_url": "https://hooks.slack.com/services/T/B/X",
				"message":     "{{ .document.name }} is ready",
			}},
		},
		{
			name:    "unknown type",
			trigger: &models.Trigger{Type: "pager"},
			want:    services.ErrUnsupportedTrigger,
		},
		{
			name:    "missing webhook",
			trigger: &models.Trigger{Type: "slack"},
			want:    services.ErrInvalidTriggerConfig,
		},
		{
			name:    "webhook is not a url",
			trigger: &models.Trigger{Type: "slack", Config: map[string]any{"webhook_url": "hooks"}},
			want:    services.ErrInvalidTriggerConfig,
		},
		{
			name: "unknown field",
			trigger: &models.Trigger{Type: "slack", Config: map[string]any{
				"webhook_url": "https://hooks.slack.com/services/T/B/X",
				"color":       "red",
			}},
			want: services.ErrInvalidTriggerConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Validate(tt.trigger)
			if tt.want == nil {
				assert.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.want)
			assert.True(t, services.IsValidationError(err))
		})
	}
}

func TestRegistry_Notify(t *testing.T) {
	registry := newRegistry()

	delivered := make(chan struct{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered <- struct{}{}
	}))
	defer server.Close()

	err := registry.Notify(t.Context(), &models.Trigger{Type: "slack", Config: map[string]any{"webhook_url": server.URL}}, "hi")
	require.NoError(t, err)
	assert.Len(t, delivered, 1)

	err = registry.Notify(t.Context(), &models.Trigger{Type: "pager"}, "hi")
	assert.Error(t, err)

	assert.Equal(t, []string{"slack"}, registry.Types())
}
