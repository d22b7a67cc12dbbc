// README: Notification service: persist and push user notifications.
package notification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"strconv"
	"time"

	"parcelo/internal/modules/delivery"
	"parcelo/internal/modules/tracking"
	"parcelo/internal/realtime"
	"parcelo/internal/types"
)

type Service struct {
	store Store
	hub   *realtime.Hub
}

func NewService(store Store, hub *realtime.Hub) *Service {
	return &Service{store: store, hub: hub}
}

type SendCommand struct {
	UserID    types.ID
	Title     string
	Message   string
	Type      string
	ActionURL string
}

// Send persists the notification and pushes it to the user's direct room.
// A persistence failure is logged, not surfaced: notification delivery must
// never fail the operation that triggered it.
func (s *Service) Send(ctx context.Context, cmd SendCommand) {
	n := &Notification{
		ID:        newID(),
		UserID:    cmd.UserID,
		Title:     cmd.Title,
		Message:   cmd.Message,
		Type:      cmd.Type,
		ActionURL: cmd.ActionURL,
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		log.Printf("notification: persist failed for user %s: %v", cmd.UserID, err)
	}
	if s.hub != nil {
		s.hub.Broadcast(realtime.UserRoom(cmd.UserID), realtime.Event{
			Type: realtime.EventNotify,
			Payload: map[string]any{
				"id":         n.ID,
				"title":      n.Title,
				"message":    n.Message,
				"type":       n.Type,
				"action_url": n.ActionURL,
			},
		})
	}
}

// NotifyStatus sends the requester a status-keyed notification, mirroring
// the per-status wording the tracking views expect.
func (s *Service) NotifyStatus(ctx context.Context, d *delivery.Delivery, to delivery.Status) {
	title, message := statusCopy(to)
	if title == "" {
		return
	}
	s.Send(ctx, SendCommand{
		UserID:    d.RequesterID,
		Title:     title,
		Message:   message,
		Type:      "delivery_" + string(to),
		ActionURL: "/deliveries/" + string(d.ID) + "/tracking",
	})
}

// NotifyProximity alerts the requester when the carrier crosses a proximity
// threshold on approach.
func (s *Service) NotifyProximity(ctx context.Context, d *delivery.Delivery, p tracking.Proximity, etaMinutes int) {
	var title, message string
	switch p {
	case tracking.ProximityApproaching:
		title = "Carrier approaching"
		message = "Your carrier is on the way"
		if etaMinutes > 0 {
			message = "Your carrier will arrive in about " + strconv.Itoa(etaMinutes) + " minutes"
		}
	case tracking.ProximityNearby:
		title = "Carrier nearby"
		message = "Your carrier is close to the drop-off address"
	case tracking.ProximityArrived:
		title = "Carrier arrived"
		message = "Your carrier has arrived at the drop-off address"
	default:
		return
	}
	s.Send(ctx, SendCommand{
		UserID:    d.RequesterID,
		Title:     title,
		Message:   message,
		Type:      "delivery_proximity",
		ActionURL: "/deliveries/" + string(d.ID) + "/tracking",
	})
}

func (s *Service) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Notification, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *Service) MarkRead(ctx context.Context, id types.ID) error {
	return s.store.MarkRead(ctx, id)
}

func statusCopy(to delivery.Status) (title, message string) {
	switch to {
	case delivery.StatusAccepted:
		return "Carrier assigned", "A carrier has accepted your delivery"
	case delivery.StatusPickedUp:
		return "Package picked up", "Your package has been picked up"
	case delivery.StatusInTransit:
		return "Delivery in progress", "Your package is on its way"
	case delivery.StatusOutForDelivery:
		return "Out for delivery", "Your package is out for delivery"
	case delivery.StatusDelivered:
		return "Delivered", "Your package has been delivered"
	case delivery.StatusCancelled:
		return "Delivery cancelled", "The delivery has been cancelled"
	}
	return "", ""
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
