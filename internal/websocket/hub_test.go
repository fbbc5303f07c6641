package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techtrack-backend/internal/fanout"
)

type countingSink struct {
	mu    sync.Mutex
	types []string
}

func (s *countingSink) Name() string { return "counting" }

func (s *countingSink) Publish(_ context.Context, e fanout.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, e.Type)
	return nil
}

func testClient(id string, buffer int) *Client {
	return &Client{ID: id, send: make(chan []byte, buffer)}
}

func TestHub_Rooms(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	admin := testClient("admin", 4)
	tech := testClient("tech", 4)

	hub.Join(AdminRoom, admin)
	hub.Join(TechRoom("7"), tech)
	// one connection may sit in both rooms
	hub.Join(AdminRoom, tech)

	assert.Equal(t, 2, hub.RoomSize(AdminRoom))
	assert.True(t, hub.InRoom(TechRoom("7"), tech))
	assert.False(t, hub.InRoom(TechRoom("7"), admin))

	hub.Leave(AdminRoom, tech)
	assert.False(t, hub.InRoom(AdminRoom, tech))
	assert.Equal(t, 1, hub.RoomSize(AdminRoom))

	hub.Leave(TechRoom("7"), tech)
	assert.Equal(t, 0, hub.RoomSize(TechRoom("7")))
	_, exists := hub.rooms[TechRoom("7")]
	assert.False(t, exists, "empty rooms are removed")
}

func TestHub_BroadcastReachesOnlyRoomMembers(t *testing.T) {
	sink := &countingSink{}
	hub := NewHub(zerolog.Nop(), sink)
	admin := testClient("admin", 4)
	tech := testClient("tech", 4)
	hub.Join(AdminRoom, admin)
	hub.Join(TechRoom("7"), tech)

	hub.BroadcastToRoom(AdminRoom, EventLocationUpdate, map[string]string{"technician_id": "7"})

	require.Len(t, admin.send, 1)
	assert.Len(t, tech.send, 0)

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-admin.send, &msg))
	assert.Equal(t, EventLocationUpdate, msg.Type)
	assert.JSONEq(t, `{"technician_id":"7"}`, string(msg.Data))

	// only admin-room traffic is mirrored to sinks
	hub.BroadcastToRoom(TechRoom("7"), "note", nil)
	assert.Len(t, tech.send, 1)
	assert.Equal(t, []string{EventLocationUpdate}, sink.types)
}

func TestHub_SlowConsumerDropsOnlyForItself(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := testClient("slow", 1)
	fast := testClient("fast", 8)
	hub.Join(AdminRoom, slow)
	hub.Join(AdminRoom, fast)

	for i := 0; i < 3; i++ {
		hub.BroadcastToRoom(AdminRoom, EventLocationUpdate, i)
	}

	assert.Len(t, slow.send, 1)
	assert.Len(t, fast.send, 3)

	assert.False(t, hub.SendToClient(slow, EventPong, nil))
	assert.True(t, hub.SendToClient(fast, EventPong, nil))
}
