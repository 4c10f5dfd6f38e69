// Package events defines the messages the newsroom publishes on its event bus.
package events

import (
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every newsroom event.
const Topic = "newsroom.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	NotificationRequestedEvent EventType = "notification.requested"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// NotificationRequested asks a notifier to deliver a rendered message through a stage
// trigger.
type NotificationRequested struct {
	BaseEvent

	Trigger models.Trigger `json:"trigger"`
	Message string         `json:"message"`
}

func NewNotificationRequested(trigger models.Trigger, message string) *NotificationRequested {
	return &NotificationRequested{
		BaseEvent: NewBaseEvent(NotificationRequestedEvent),
		Trigger:   trigger,
		Message:   message,
	}
}

func (n NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}
