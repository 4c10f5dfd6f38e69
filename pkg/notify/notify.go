// Package notify moves stage notifications through the event bus: the API publishes
// them and a dispatcher delivers them with the trigger senders.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/newsroom/pkg/eventbus"
	"github.com/dukex/newsroom/pkg/events"
	"github.com/dukex/newsroom/pkg/models"
)

// Deliverer sends a message through a trigger. *triggers.Registry implements it.
type Deliverer interface {
	Notify(ctx context.Context, trigger *models.Trigger, message string) error
}

// EventBusSink publishes a NotificationRequested event for every notification instead of
// delivering it inline.
type EventBusSink struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewEventBusSink(publisher eventbus.EventPublisher, logger *slog.Logger) *EventBusSink {
	return &EventBusSink{
		publisher: publisher,
		logger:    logger.With("module", "notification_sink"),
	}
}

func (s *EventBusSink) Notify(ctx context.Context, trigger *models.Trigger, message string) error {
	event := events.NewNotificationRequested(*trigger, message)

	err := s.publisher.Publish(ctx, trigger.Type, event)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	s.logger.DebugContext(ctx, "Notification published", "event_id", event.ID, "trigger", trigger.Type)

	return nil
}

// Dispatcher consumes NotificationRequested events and delivers them.
type Dispatcher struct {
	subscriber eventbus.EventSubscriber
	deliverer  Deliverer
	logger     *slog.Logger
}

func NewDispatcher(subscriber eventbus.EventSubscriber, deliverer Deliverer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		subscriber: subscriber,
		deliverer:  deliverer,
		logger:     logger.With("module", "notification_dispatcher"),
	}
}

// Start registers the handler and begins consuming. Consumption stops when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := d.subscriber.Handle(events.NotificationRequestedEvent, d.handle)
	if err != nil {
		return fmt.Errorf("failed to register notification handler: %w", err)
	}

	err = d.subscriber.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to notifications: %w", err)
	}

	d.logger.InfoContext(ctx, "Notification dispatcher started")

	return nil
}

// handle delivers one notification. Delivery failures are logged and the event is
// acknowledged: notifications are best-effort and are never replayed.
func (d *Dispatcher) handle(ctx context.Context, event any) error {
	requested, ok := event.(*events.NotificationRequested)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	err := d.deliverer.Notify(ctx, &requested.Trigger, requested.Message)
	if err != nil {
		d.logger.WarnContext(ctx, "Failed to deliver notification",
			"event_id", requested.ID,
			"trigger", requested.Trigger.Type,
			"error", err,
		)

		return nil
	}

	d.logger.InfoContext(ctx, "Notification delivered", "event_id", requested.ID, "trigger", requested.Trigger.Type)

	return nil
}
