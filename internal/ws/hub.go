package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is the frame pushed to kitchen display clients.
type Message struct {
	Type    string          `json:"type"`
	OrderID string          `json:"order_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type roomMessage struct {
	OrganizationID uuid.UUID
	RestaurantID   uuid.UUID
	Message        Message
}

// Hub fans messages out to the clients watching each restaurant.
type Hub struct {
	// Registered clients by restaurant ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.restaurantID] == nil {
				h.rooms[client.restaurantID] = make(map[*Client]bool)
			}
			h.rooms[client.restaurantID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.logger.Error("marshal websocket message", zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[msg.RestaurantID] {
				if client.organizationID != msg.OrganizationID {
					continue
				}
				select {
				case client.send <- data:
				default:
					// slow consumer
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.restaurantID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.restaurantID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.rooms {
		for client := range clients {
			close(client.send)
		}
		delete(h.rooms, id)
	}
}

// BroadcastToRestaurant queues msg for every client of the organization
// watching the restaurant. The message is dropped when the queue is full.
func (h *Hub) BroadcastToRestaurant(organizationID, restaurantID uuid.UUID, msg Message) bool {
	select {
	case h.broadcast <- &roomMessage{OrganizationID: organizationID, RestaurantID: restaurantID, Message: msg}:
		return true
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("restaurant_id", restaurantID.String()),
			zap.String("type", msg.Type),
		)
		return false
	}
}

// ClientCount reports how many clients are watching a restaurant.
func (h *Hub) ClientCount(restaurantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[restaurantID])
}
