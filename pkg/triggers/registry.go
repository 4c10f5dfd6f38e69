// Package triggers holds the stage trigger types a workflow can use and the senders that
// deliver their notifications.
package triggers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/xeipuuv/gojsonschema"
)

// Sender delivers a rendered message for one trigger type.
type Sender interface {
	// Type is the trigger type this sender handles, e.g. "slack".
	Type() string
	// Schema is the JSON schema a trigger's config must satisfy.
	Schema() map[string]any
	Send(ctx context.Context, config map[string]any, message string) error
}

type Registry struct {
	logger  *slog.Logger
	senders map[string]Sender
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger.With("module", "trigger_registry"),
		senders: make(map[string]Sender),
	}
}

func (r *Registry) Register(sender Sender) {
	r.senders[sender.Type()] = sender
}

// Types returns the registered trigger types in name order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.senders))
	for triggerType := range r.senders {
		types = append(types, triggerType)
	}

	sort.Strings(types)

	return types
}

// Validate checks that trigger has a registered type and a config matching its schema.
func (r *Registry) Validate(trigger *models.Trigger) error {
	sender, ok := r.senders[trigger.Type]
	if !ok {
		return services.NewValidationError("Validate", "unsupported_trigger",
			fmt.Sprintf("trigger type '%s' is not supported", trigger.Type), services.ErrUnsupportedTrigger)
	}

	config := trigger.Config
	if config == nil {
		config = map[string]any{}
	}

	err := validateJSONSchema(config, sender.Schema())
	if err != nil {
		return services.NewValidationError("Validate", "invalid_trigger_config", err.Error(), services.ErrInvalidTriggerConfig)
	}

	return nil
}

// Notify delivers message through the sender registered for the trigger's type.
func (r *Registry) Notify(ctx context.Context, trigger *models.Trigger, message string) error {
	sender, ok := r.senders[trigger.Type]
	if !ok {
		return fmt.Errorf("trigger type '%s' not registered", trigger.Type)
	}

	r.logger.DebugContext(ctx, "Sending notification", "trigger", trigger.Type)

	return sender.Send(ctx, trigger.Config, message)
}

func validateJSONSchema(data any, schema map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			problems = append(problems, resultError.String())
		}

		return fmt.Errorf("config does not match schema: %s", strings.Join(problems, "; "))
	}

	return nil
}
