// README: Tracking gateway: sequences actor intents across the core components
// and owns every broadcast, so room ordering follows trigger order.
package gateway

import (
	"context"
	"log"
	"sync"
	"time"

	"parcelo/internal/modules/confirmation"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/modules/notification"
	"parcelo/internal/modules/tracking"
	"parcelo/internal/realtime"
	"parcelo/internal/types"
)

// PaymentReleaser releases the escrowed payment after a confirmed delivery.
// Billing lives outside this service; the production wiring injects the
// billing client and the default is a no-op.
type PaymentReleaser interface {
	Release(ctx context.Context, deliveryID types.ID) error
}

type NopPaymentReleaser struct{}

func (NopPaymentReleaser) Release(context.Context, types.ID) error { return nil }

type Deps struct {
	Delivery     *delivery.Service
	Confirmation *confirmation.Service
	Tracking     *tracking.Service
	Notification *notification.Service
	Hub          *realtime.Hub
	Payments     PaymentReleaser
}

type Gateway struct {
	delivery     *delivery.Service
	confirmation *confirmation.Service
	tracking     *tracking.Service
	notification *notification.Service
	hub          *realtime.Hub
	payments     PaymentReleaser

	mu        sync.Mutex
	proximity map[types.ID]tracking.Proximity
}

func New(deps Deps) *Gateway {
	payments := deps.Payments
	if payments == nil {
		payments = NopPaymentReleaser{}
	}
	return &Gateway{
		delivery:     deps.Delivery,
		confirmation: deps.Confirmation,
		tracking:     deps.Tracking,
		notification: deps.Notification,
		hub:          deps.Hub,
		payments:     payments,
		proximity:    make(map[types.ID]tracking.Proximity),
	}
}

// ReportLocation ingests a carrier position sample, derives the current ETA,
// and broadcasts a location event to the delivery's room.
func (g *Gateway) ReportLocation(ctx context.Context, cmd tracking.ReportCommand) (*tracking.Sample, *tracking.ETA, error) {
	sample, err := g.tracking.Report(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	eta, err := g.tracking.EstimateArrival(ctx, cmd.DeliveryID)
	if err != nil {
		log.Printf("gateway: eta for %s failed: %v", cmd.DeliveryID, err)
		eta = nil
	}

	payload := map[string]any{
		"delivery_id": sample.DeliveryID,
		"lat":         sample.Position.Lat,
		"lng":         sample.Position.Lng,
		"captured_at": sample.CapturedAt,
	}
	if sample.HeadingDeg != nil {
		payload["heading"] = *sample.HeadingDeg
	}
	if sample.SpeedKmh != nil {
		payload["speed_kmh"] = *sample.SpeedKmh
	}
	if eta != nil {
		payload["eta"] = eta.ArrivalAt
		payload["distance_m"] = eta.DistanceM
		payload["eta_degraded"] = eta.Degraded
	}
	g.hub.Broadcast(realtime.DeliveryRoom(cmd.DeliveryID), realtime.Event{
		Type:    realtime.EventLocation,
		Payload: payload,
	})

	g.maybeNotifyProximity(ctx, cmd.DeliveryID, eta)
	return sample, eta, nil
}

// ChangeStatus applies a requested status transition and broadcasts the
// result. Delivered is unreachable here; it only falls out of RedeemCode.
func (g *Gateway) ChangeStatus(ctx context.Context, cmd delivery.TransitionCommand) (*delivery.Delivery, error) {
	d, err := g.delivery.Transition(ctx, cmd)
	if err != nil {
		return nil, err
	}
	g.broadcastStatus(ctx, d, cmd.ActorRole)
	return d, nil
}

// AcceptDelivery assigns the carrier and broadcasts the accepted status.
func (g *Gateway) AcceptDelivery(ctx context.Context, deliveryID, carrierID types.ID) (*delivery.Delivery, error) {
	d, err := g.delivery.Accept(ctx, delivery.AcceptCommand{DeliveryID: deliveryID, CarrierID: carrierID})
	if err != nil {
		return nil, err
	}
	g.broadcastStatus(ctx, d, delivery.RoleCarrier)
	return d, nil
}

// IssueCode generates (or rotates) the delivery's confirmation code. The
// code value is returned to the caller only, never broadcast.
func (g *Gateway) IssueCode(ctx context.Context, deliveryID types.ID, actorRole string, actorID types.ID) (confirmation.Issued, error) {
	d, err := g.delivery.Get(ctx, deliveryID)
	if err != nil {
		return confirmation.Issued{}, err
	}
	if actorRole == delivery.RoleRequester && d.RequesterID != actorID {
		return confirmation.Issued{}, confirmation.ErrForbidden
	}
	issued, err := g.confirmation.Issue(ctx, deliveryID, actorRole)
	if err != nil {
		return confirmation.Issued{}, err
	}
	if err := g.delivery.SetCodeID(ctx, deliveryID, &issued.CodeID); err != nil {
		log.Printf("gateway: code reference update for %s failed: %v", deliveryID, err)
	}
	return issued, nil
}

// RedeemCode validates the submitted code and, on success, completes the
// delivery, broadcasts the terminal status, and releases payment.
func (g *Gateway) RedeemCode(ctx context.Context, cmd confirmation.RedeemCommand, actorID types.ID) (*delivery.Delivery, error) {
	d, err := g.delivery.Get(ctx, cmd.DeliveryID)
	if err != nil {
		return nil, err
	}
	if cmd.ActorRole == delivery.RoleCarrier && (d.CarrierID == nil || *d.CarrierID != actorID) {
		return nil, confirmation.ErrForbidden
	}
	// Codes are single-use, so the delivered transition must be known legal
	// before redemption consumes one.
	if !delivery.CanTransition(d.Status, delivery.StatusDelivered) {
		return nil, delivery.ErrIllegalTransition
	}

	if _, err := g.confirmation.Redeem(ctx, cmd); err != nil {
		return nil, err
	}

	d, err = g.delivery.Complete(ctx, delivery.CompleteCommand{
		DeliveryID: cmd.DeliveryID,
		ActorRole:  cmd.ActorRole,
		ActorID:    actorID,
		Message:    cmd.Notes,
	})
	if err != nil {
		return nil, err
	}

	g.broadcastStatus(ctx, d, cmd.ActorRole)

	if err := g.payments.Release(ctx, d.ID); err != nil {
		log.Printf("gateway: payment release for %s failed: %v", d.ID, err)
	}
	return d, nil
}

// Snapshot assembles the resynchronization view a reconnecting tracking
// client fetches: status, progress, current position, ETA, and history.
type Snapshot struct {
	Status          delivery.Status
	Progress        int
	CurrentPosition *tracking.Sample
	EstimatedAt     *tracking.ETA
	History         []delivery.HistoryEntry
}

func (g *Gateway) TrackingSnapshot(ctx context.Context, deliveryID types.ID, actorRole string, actorID types.ID) (*Snapshot, error) {
	d, err := g.delivery.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if !viewerAllowed(d, actorRole, actorID) {
		return nil, delivery.ErrForbidden
	}

	snap := &Snapshot{
		Status:   d.Status,
		Progress: delivery.Progress(d.Status),
	}

	sample, err := g.tracking.Latest(ctx, deliveryID)
	if err == nil {
		snap.CurrentPosition = sample
	}
	eta, err := g.tracking.EstimateArrival(ctx, deliveryID)
	if err == nil {
		snap.EstimatedAt = eta
	}
	history, err := g.delivery.History(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	snap.History = history
	return snap, nil
}

func viewerAllowed(d *delivery.Delivery, actorRole string, actorID types.ID) bool {
	switch actorRole {
	case delivery.RoleOperator, delivery.RoleMerchant:
		return true
	case delivery.RoleRequester:
		return d.RequesterID == actorID
	case delivery.RoleCarrier:
		return d.CarrierID != nil && *d.CarrierID == actorID
	}
	return false
}

func (g *Gateway) broadcastStatus(ctx context.Context, d *delivery.Delivery, actorRole string) {
	if d.Status.Terminal() {
		g.mu.Lock()
		delete(g.proximity, d.ID)
		g.mu.Unlock()
	}
	g.hub.Broadcast(realtime.DeliveryRoom(d.ID), realtime.Event{
		Type: realtime.EventStatus,
		Payload: map[string]any{
			"delivery_id": d.ID,
			"status":      d.Status,
			"progress":    delivery.Progress(d.Status),
			"actor_role":  actorRole,
		},
	})
	if g.notification != nil {
		g.notification.NotifyStatus(ctx, d, d.Status)
	}
}

// maybeNotifyProximity alerts the requester once per proximity class change
// on approach.
func (g *Gateway) maybeNotifyProximity(ctx context.Context, deliveryID types.ID, eta *tracking.ETA) {
	if g.notification == nil || eta == nil {
		return
	}
	class := tracking.Classify(float64(eta.DistanceM))
	if class == tracking.ProximityNone {
		return
	}

	g.mu.Lock()
	prev := g.proximity[deliveryID]
	if prev == class {
		g.mu.Unlock()
		return
	}
	g.proximity[deliveryID] = class
	g.mu.Unlock()

	d, err := g.delivery.Get(ctx, deliveryID)
	if err != nil {
		return
	}
	minutes := int(eta.Duration / time.Minute)
	g.notification.NotifyProximity(ctx, d, class, minutes)
}
