package broker

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// EventPublisher handles publishing checkout events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCheckoutConfirmed publishes a CheckoutConfirmed event keyed by order reference
func (ep *EventPublisher) PublishCheckoutConfirmed(ctx context.Context, event *models.CheckoutConfirmedEvent) error {
	key := fmt.Sprintf("checkout-%s", event.OrderRef)
	return ep.producer.PublishEvent(ctx, key, event)
}

// NoopPublisher logs events instead of publishing them. Used when no Kafka
// brokers are configured.
type NoopPublisher struct{}

// PublishCheckoutConfirmed logs the event
func (NoopPublisher) PublishCheckoutConfirmed(_ context.Context, event *models.CheckoutConfirmedEvent) error {
	util.ComponentLogger("broker").Info("Kafka disabled, checkout event not published",
		zap.String("order_ref", event.OrderRef),
		zap.String("event_id", event.EventID))
	return nil
}
