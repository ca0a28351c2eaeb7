package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tutorgoat/tutorgoat-backend/pkg/logger"
)

const defaultClientBuffer = 32

// Client is one open SSE stream.
type Client struct {
	ID      string
	AdminID uuid.UUID
	Events  chan Event
}

// Hub fans events out to the SSE clients connected to this instance.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	buffer  int
	logg    *logger.Logger
}

func NewHub(buffer int, logg *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Hub{
		clients: make(map[string]*Client),
		buffer:  buffer,
		logg:    logg,
	}
}

// Register opens a client for adminID. Callers must Unregister it.
func (h *Hub) Register(adminID uuid.UUID) *Client {
	client := &Client{
		ID:      uuid.NewString(),
		AdminID: adminID,
		Events:  make(chan Event, h.buffer),
	}
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	return client
}

// Unregister removes the client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
	}
}

// Broadcast delivers event to every client. Slow clients drop the event.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			if h.logg != nil {
				ctx := h.logg.WithFields(context.Background(), map[string]any{
					"client_id":  client.ID,
					"event_type": string(event.Type),
				})
				h.logg.Warn(ctx, "sse client buffer full, dropping event")
			}
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
