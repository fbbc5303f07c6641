package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"techtrack-backend/internal/fanout"
)

// AdminRoom receives every tracking broadcast
const AdminRoom = "admin_room"

// TechRoom is the room of a single technician
func TechRoom(techID string) string {
	return "tech_" + techID
}

// Hub maintains active WebSocket connections and room membership
type Hub struct {
	// Registered clients
	clients map[*Client]struct{}

	// Room key -> members. A client may sit in several rooms.
	rooms map[string]map[*Client]struct{}

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Out-of-process mirrors of admin-room broadcasts
	sinks []fanout.Sink

	// Mutex for thread-safe client and room access
	mu sync.RWMutex

	log zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(log zerolog.Logger, sinks ...fanout.Sink) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		sinks:      sinks,
		log:        log.With().Str("component", "websocket").Logger(),
	}
}

// Run starts the hub's main loop. On ctx cancellation every client is dropped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info().
				Str("client_id", client.ID).
				Str("user_id", client.UserID).
				Str("role", client.UserRole).
				Int("total_clients", total).
				Msg("✅ [WEBSOCKET] Client CONNECTED")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeLocked(client)
				remaining := len(h.clients)
				h.mu.Unlock()
				h.log.Info().
					Str("client_id", client.ID).
					Str("user_id", client.UserID).
					Int("remaining_clients", remaining).
					Msg("🔴 [WEBSOCKET] Client DISCONNECTED")
				continue
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// removeLocked drops client from every room and closes its send channel
func (h *Hub) removeLocked(client *Client) {
	for room, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.clients, client)
	client.closed = true
	close(client.send)
}

// Register hands client to the Run loop. It returns false once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister hands client to the Run loop for removal
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToClient unicasts an event. It is dropped when the client is gone or
// its buffer is full.
func (h *Hub) SendToClient(client *Client, eventType string, data interface{}) bool {
	payload, err := json.Marshal(outbound{Type: eventType, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("type", eventType).Msg("❌ Failed to marshal message")
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if client.closed {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		h.log.Warn().Str("client_id", client.ID).Str("type", eventType).Msg("⚠️ Client buffer full, dropping reply")
		return false
	}
}

// Join adds client to room. Joining twice is a no-op.
func (h *Hub) Join(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.closed {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
}

// Leave removes client from room
func (h *Hub) Leave(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// BroadcastToRoom sends an event to every member of room. Members with a full
// buffer miss the event; nobody else is affected. Admin-room events are also
// handed to the sinks.
func (h *Hub) BroadcastToRoom(room, eventType string, data interface{}) {
	payload, err := json.Marshal(outbound{Type: eventType, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("type", eventType).Msg("❌ Failed to marshal broadcast message")
		return
	}

	h.mu.RLock()
	for client := range h.rooms[room] {
		select {
		case client.send <- payload:
		default:
			h.log.Warn().Str("client_id", client.ID).Str("type", eventType).Msg("⚠️ Client buffer full, skipping")
		}
	}
	h.mu.RUnlock()

	if room != AdminRoom {
		return
	}
	event := fanout.Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
	for _, sink := range h.sinks {
		if err := sink.Publish(context.Background(), event); err != nil {
			h.log.Warn().Err(err).Str("sink", sink.Name()).Msg("⚠️ Fan-out sink rejected event")
		}
	}
}

// RoomSize returns the number of members in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// InRoom reports whether client is a member of room
func (h *Hub) InRoom(room string, client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][client]
	return ok
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
