package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tablekit/restaurant-api/internal/ws"
)

var ErrHubBusy = errors.New("websocket hub queue full")

// HubPublisher forwards events to kitchen display clients.
type HubPublisher struct {
	hub *ws.Hub
}

func NewHubPublisher(hub *ws.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, evt Event) error {
	msg := ws.Message{
		Type:    evt.Type,
		Payload: evt.Payload,
	}
	if evt.OrderID != uuid.Nil {
		msg.OrderID = evt.OrderID.String()
	}
	if !p.hub.BroadcastToRestaurant(evt.OrganizationID, evt.RestaurantID, msg) {
		return ErrHubBusy
	}
	return nil
}
