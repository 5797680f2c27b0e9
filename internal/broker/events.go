package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"image-search-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSearchPerformed publishes a SearchPerformed analytics event
func (ep *EventPublisher) PublishSearchPerformed(ctx context.Context, event *models.SearchPerformedEvent) error {
	return ep.producer.PublishEvent(ctx, event.EventID, event)
}

// EventHandler routes catalog-change events to registered handlers
type EventHandler struct {
	onProductDeleted      func(context.Context, *models.ProductDeletedEvent) error
	onProductImageUpdated func(context.Context, *models.ProductImageUpdatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnProductDeleted registers a handler for ProductDeleted events
func (eh *EventHandler) OnProductDeleted(handler func(context.Context, *models.ProductDeletedEvent) error) {
	eh.onProductDeleted = handler
}

// OnProductImageUpdated registers a handler for ProductImageUpdated events
func (eh *EventHandler) OnProductImageUpdated(handler func(context.Context, *models.ProductImageUpdatedEvent) error) {
	eh.onProductImageUpdated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeProductDeleted:
		if eh.onProductDeleted != nil {
			var event models.ProductDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductDeleted event: %w", err)
			}
			return eh.onProductDeleted(ctx, &event)
		}

	case models.EventTypeProductImageUpdated:
		if eh.onProductImageUpdated != nil {
			var event models.ProductImageUpdatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ProductImageUpdated event: %w", err)
			}
			return eh.onProductImageUpdated(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
