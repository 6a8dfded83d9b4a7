// Package events carries order and payment domain events to the kitchen
// display hub and, optionally, to a message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Type           string          `json:"type"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	RestaurantID   uuid.UUID       `json:"restaurant_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload"`
}

// New builds an event with payload marshaled to JSON.
func New(eventType string, organizationID, restaurantID, orderID uuid.UUID, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:           eventType,
		OrganizationID: organizationID,
		RestaurantID:   restaurantID,
		OrderID:        orderID,
		OccurredAt:     time.Now().UTC(),
		Payload:        data,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
