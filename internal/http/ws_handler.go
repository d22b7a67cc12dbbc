// README: Websocket endpoint: handshake auth, room subscriptions, inbound routing.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"parcelo/internal/gateway"
	"parcelo/internal/infra"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/modules/tracking"
	"parcelo/internal/realtime"
	"parcelo/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks belong to the edge proxy in this deployment.
	CheckOrigin: func(*http.Request) bool { return true },
}

type WSHandler struct {
	hub      *realtime.Hub
	verifier infra.TokenVerifier
	gateway  *gateway.Gateway
}

func NewWSHandler(hub *realtime.Hub, verifier infra.TokenVerifier, gw *gateway.Gateway) *WSHandler {
	return &WSHandler{hub: hub, verifier: verifier, gateway: gw}
}

// Serve authenticates the handshake via the token query parameter (browsers
// cannot set headers on websocket upgrades), upgrades the connection, and
// runs the read/write pumps until disconnect.
func (h *WSHandler) Serve(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	token, err := h.verifier.VerifyIDToken(c.Request.Context(), raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	role := delivery.RoleRequester
	if r, ok := token.Claims["role"].(string); ok && r != "" {
		role = r
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, types.ID(token.UID), role, h.route)
	h.hub.Register(client)
	h.hub.Join(client, realtime.UserRoom(client.UserID))
	h.hub.Join(client, realtime.RoleRoom(client.Role))

	go client.WritePump()
	client.ReadPump()
}

type locationPayload struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	AccuracyM  *float64 `json:"accuracy_m"`
	HeadingDeg *float64 `json:"heading"`
	SpeedKmh   *float64 `json:"speed_kmh"`
}

// route dispatches one inbound client message.
func (h *WSHandler) route(c *realtime.Client, msg realtime.Inbound) {
	switch msg.Type {
	case "join":
		if !joinable(c, msg.Room) {
			return
		}
		h.hub.Join(c, msg.Room)

	case "leave":
		h.hub.Leave(c, msg.Room)

	case "location":
		// Carrier position push over the socket; same path as the REST
		// report, including the room broadcast.
		if c.Role != delivery.RoleCarrier {
			return
		}
		deliveryID, ok := roomDeliveryID(msg.Room)
		if !ok {
			return
		}
		var p locationPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		_, _, err := h.gateway.ReportLocation(context.Background(), tracking.ReportCommand{
			DeliveryID: deliveryID,
			CarrierID:  c.UserID,
			Position:   types.Point{Lat: p.Lat, Lng: p.Lng},
			AccuracyM:  p.AccuracyM,
			HeadingDeg: p.HeadingDeg,
			SpeedKmh:   p.SpeedKmh,
		})
		if err != nil {
			log.Printf("ws: location from %s rejected: %v", c.UserID, err)
		}

	case "typing", "message":
		// Conversation relay: fan out to the room, excluding the sender.
		if !conversationRoom(msg.Room) {
			return
		}
		h.hub.BroadcastExcept(msg.Room, c, realtime.Event{
			Type: msg.Type,
			Payload: map[string]any{
				"user_id": c.UserID,
				"data":    json.RawMessage(msg.Payload),
			},
		})
	}
}

// joinable restricts self-service subscriptions: anyone may watch delivery
// and conversation rooms, but user and role rooms are joined only at
// connect time for the caller's own identity.
func joinable(c *realtime.Client, room string) bool {
	if room == "" {
		return false
	}
	if _, ok := roomDeliveryID(room); ok {
		return true
	}
	if conversationRoom(room) {
		return true
	}
	return room == realtime.UserRoom(c.UserID) || room == realtime.RoleRoom(c.Role)
}

func roomDeliveryID(room string) (types.ID, bool) {
	const prefix = "delivery:"
	if len(room) > len(prefix) && room[:len(prefix)] == prefix {
		return types.ID(room[len(prefix):]), true
	}
	return "", false
}

func conversationRoom(room string) bool {
	const prefix = "conversation:"
	return len(room) > len(prefix) && room[:len(prefix)] == prefix
}
