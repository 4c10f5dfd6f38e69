package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/newsroom/pkg/eventbus"
)

// NewEventBus creates the event bus carrying notification requests. "gochannel" keeps
// them in process; "kafka" publishes them to brokers for a separate notifier.
func NewEventBus(provider string, brokers []string, serviceName string, logger *slog.Logger) (*eventbus.WatermillEventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub := eventbus.NewGoChannel(watermillLogger)

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := eventbus.NewKafkaChannel(watermillLogger, brokers, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
