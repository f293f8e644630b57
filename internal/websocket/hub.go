package websocket

import (
	"log/slog"
	"sync"

	"github.com/starlow12/recipe/internal/types"
)

// Hub maintains the set of active clients and broadcasts story events to them
type Hub struct {
	// Registered clients mapped by user ID
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	broadcast chan *BroadcastMessage
}

// BroadcastMessage represents an event to be delivered to specific users
type BroadcastMessage struct {
	UserIDs []string     `json:"user_ids"`
	Event   *types.Event `json:"event"`
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// A user keeps at most one connection; a new one replaces the old
			if existingClient, exists := h.clients[client.userID]; exists {
				close(existingClient.send)
				slog.Info("Replaced existing WebSocket connection", slog.String("user_id", client.userID))
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("WebSocket client connected", slog.String("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
				slog.Info("WebSocket client disconnected", slog.String("user_id", client.userID))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastToUsers(message.UserIDs, message.Event)
		}
	}
}

// RegisterClient registers a new client
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// BroadcastToUsers sends an event to specific users
func (h *Hub) BroadcastToUsers(userIDs []string, event *types.Event) {
	message := &BroadcastMessage{
		UserIDs: userIDs,
		Event:   event,
	}

	select {
	case h.broadcast <- message:
	default:
		slog.Warn("Broadcast channel is full, dropping message")
	}
}

// BroadcastToUser sends an event to a specific user
func (h *Hub) BroadcastToUser(userID string, event *types.Event) {
	h.BroadcastToUsers([]string{userID}, event)
}

func (h *Hub) broadcastToUsers(userIDs []string, event *types.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		if client, ok := h.clients[userID]; ok {
			err := client.SendEvent(event)
			if err != nil {
				slog.Error("Failed to send event to client",
					slog.String("user_id", userID),
					slog.String("error", err.Error()))
				go func(c *Client) {
					h.unregister <- c
				}(client)
			}
		}
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
