package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client represents a WebSocket client connection. UserID and UserRole are
// empty for connections opened without a token.
type Client struct {
	ID       string
	UserID   string
	UserRole string
	conn     *websocket.Conn
	hub      *Hub
	dispatch *Dispatcher
	send     chan []byte

	// set by the hub under its lock once send is closed
	closed bool

	log zerolog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(userID, userRole string, conn *websocket.Conn, hub *Hub, dispatch *Dispatcher) *Client {
	id := uuid.New().String()
	return &Client{
		ID:       id,
		UserID:   userID,
		UserRole: userRole,
		conn:     conn,
		hub:      hub,
		dispatch: dispatch,
		send:     make(chan []byte, sendBufferSize),
		log:      hub.log.With().Str("client_id", id).Logger(),
	}
}

// ReadPump reads inbound events and dispatches them one at a time, so a
// connection's events are handled in the order they arrived.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
			c.log.Debug().Err(err).Msg("Invalid message format")
			c.Send(EventTrackingError, ErrorPayload{Message: "Invalid message format"})
			continue
		}

		c.dispatch.Dispatch(c, env)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// Messages queued while a frame is being written are appended to it,
// separated by '\n'.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send unicasts an event to this client
func (c *Client) Send(eventType string, data interface{}) bool {
	return c.hub.SendToClient(c, eventType, data)
}
