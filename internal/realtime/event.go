// README: Event envelope and room naming for the broadcaster.
package realtime

import (
	"encoding/json"
	"time"

	"parcelo/internal/types"
)

// Event types fanned out to rooms.
const (
	EventLocation = "location"
	EventStatus   = "status"
	EventPresence = "presence"
	EventNotify   = "notification"
	EventTyping   = "typing"
	EventMessage  = "message"
)

// Event is the envelope delivered to every member of a room. Payload is
// marshalled once per broadcast, not per receiver.
type Event struct {
	Type    string      `json:"type"`
	Room    string      `json:"room"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

// Inbound is a client → server message read off the socket.
type Inbound struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Room name constructors. Rooms are purely in-memory broadcast groups and
// never authoritative for business state.
func DeliveryRoom(id types.ID) string     { return "delivery:" + string(id) }
func ConversationRoom(id types.ID) string { return "conversation:" + string(id) }
func RoleRoom(role string) string         { return "role:" + role }
func UserRoom(id types.ID) string         { return "user:" + string(id) }
