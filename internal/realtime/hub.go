// README: Connection registry and room broadcaster.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"parcelo/internal/config"
	"parcelo/internal/types"
)

// Hub owns every live connection and the room membership map. It is created
// at server start, injected where needed, and torn down at shutdown; there
// is no package-level registry. All membership mutations and fan-outs go
// through the mutex so they are safe under concurrent connection workers.
type Hub struct {
	cfg config.RealtimeConfig

	mu     sync.Mutex
	conns  map[*Client]struct{}
	rooms  map[string]map[*Client]struct{}
	byUser map[types.ID]map[*Client]struct{}
}

func NewHub(cfg config.RealtimeConfig) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	return &Hub{
		cfg:    cfg,
		conns:  make(map[*Client]struct{}),
		rooms:  make(map[string]map[*Client]struct{}),
		byUser: make(map[types.ID]map[*Client]struct{}),
	}
}

// Register adds an authenticated connection to the registry. The first open
// connection for a user emits a presence-online event to the user's role
// room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	set, ok := h.byUser[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.byUser[c.UserID] = set
	}
	first := len(set) == 0
	set[c] = struct{}{}
	h.mu.Unlock()

	log.Printf("realtime: connection %s registered (user=%s role=%s)", c.ID, c.UserID, c.Role)
	if first {
		h.Broadcast(RoleRoom(c.Role), Event{
			Type:    EventPresence,
			Payload: map[string]any{"user_id": c.UserID, "online": true},
		})
	}
}

// Unregister removes the connection from every room it belongs to and from
// the registry. If this was the user's last open connection, a
// presence-offline event is emitted to the user's role room.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	h.removeLocked(c)
	last := len(h.byUser[c.UserID]) == 0
	h.mu.Unlock()

	log.Printf("realtime: connection %s unregistered (user=%s)", c.ID, c.UserID)
	if last {
		h.Broadcast(RoleRoom(c.Role), Event{
			Type:    EventPresence,
			Payload: map[string]any{"user_id": c.UserID, "online": false},
		})
	}
}

// Join adds the connection to a room. Duplicate joins are no-ops.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave removes the connection from a room; no-op if absent.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

// Broadcast delivers an event to every connection currently in the room.
// Broadcasting to an empty room is a no-op. The per-connection send never
// blocks: a receiver whose buffer is full is dropped and disconnected so
// one slow client cannot stall delivery to the rest of the room.
func (h *Hub) Broadcast(room string, ev Event) {
	h.BroadcastExcept(room, nil, ev)
}

// BroadcastExcept is Broadcast with an optional excluded sender.
func (h *Hub) BroadcastExcept(room string, sender *Client, ev Event) {
	ev.Room = room
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime: marshal event for %s failed: %v", room, err)
		return
	}

	var wentOffline []*Client
	h.mu.Lock()
	for c := range h.rooms[room] {
		if c == sender {
			continue
		}
		select {
		case c.send <- data:
		default:
			log.Printf("realtime: dropping slow connection %s (user=%s)", c.ID, c.UserID)
			h.removeLocked(c)
			if len(h.byUser[c.UserID]) == 0 {
				wentOffline = append(wentOffline, c)
			}
		}
	}
	h.mu.Unlock()

	// Eviction is a disconnect like any other; users whose last connection
	// was dropped here still owe a presence-offline event. Emitted after the
	// unlock because Broadcast retakes the mutex.
	for _, c := range wentOffline {
		h.Broadcast(RoleRoom(c.Role), Event{
			Type:    EventPresence,
			Payload: map[string]any{"user_id": c.UserID, "online": false},
		})
	}
}

// RoomSize reports current membership, for diagnostics and tests.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Online reports whether the user has at least one open connection.
func (h *Hub) Online(userID types.ID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byUser[userID]) > 0
}

// Shutdown disconnects every connection; called once at server teardown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		h.removeLocked(c)
	}
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.conns, c)
	if set, ok := h.byUser[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
	close(c.send)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	delete(c.rooms, room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}
