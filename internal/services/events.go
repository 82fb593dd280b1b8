package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Routing keys for domain events.
const (
	EventUserRegistered   = "user.registered"
	EventStoreCreated     = "store.created"
	EventStoreUpdated     = "store.updated"
	EventStoreDeactivated = "store.deactivated"
)

// EventPublisher delivers an encoded event under a routing key. *rabbitmq.Client
// satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Event is the message body published for every domain event.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	StoreID    string    `json:"storeId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// publishEvent sends ev if a publisher is configured. Delivery is best-effort: a
// failure is logged and never fails the operation that produced the event.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *slog.Logger, ev Event) {
	if publisher == nil {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		logger.ErrorContext(ctx, "marshal event", "type", ev.Type, "error", err)
		return
	}
	if err := publisher.Publish(ctx, ev.Type, body); err != nil {
		logger.WarnContext(ctx, "publish event", "type", ev.Type, "error", err)
	}
}
