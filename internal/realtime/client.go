// README: One authenticated websocket connection: read/write pumps and liveness.
package realtime

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"parcelo/internal/types"
)

const maxMessageSize = 4096

// InboundHandler processes client → server messages (room subscriptions,
// carrier location pushes, conversation events).
type InboundHandler func(c *Client, msg Inbound)

// Client is an ephemeral handle for one authenticated session. Many clients
// may map to one user (multiple devices); it is never persisted.
type Client struct {
	ID     string
	UserID types.ID
	Role   string

	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	handler InboundHandler

	// rooms is guarded by hub.mu.
	rooms map[string]struct{}
}

// NewClient wraps an upgraded, already-authenticated websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID types.ID, role string, handler InboundHandler) *Client {
	return &Client{
		ID:      newConnID(),
		UserID:  userID,
		Role:    role,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.cfg.SendBuffer),
		handler: handler,
		rooms:   make(map[string]struct{}),
	}
}

// ReadPump consumes inbound frames until the connection dies or stops
// answering pings within the pong window, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("realtime: read error on %s: %v", c.ID, err)
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("realtime: bad message from %s: %v", c.ID, err)
			continue
		}
		if c.handler != nil {
			c.handler(c, msg)
		}
	}
}

// WritePump drains the send buffer onto the socket and keeps the connection
// alive with periodic pings. It exits when the hub closes the send channel
// or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// Flush any queued events into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

// TryRecv pops the next queued outbound frame without blocking. Reports
// false when the queue is empty.
func (c *Client) TryRecv() ([]byte, bool) {
	select {
	case data, ok := <-c.send:
		return data, ok
	default:
		return nil, false
	}
}

func newConnID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
