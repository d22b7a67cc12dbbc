// README: Delivery service implements the status state machine and persistence.
package delivery

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"parcelo/internal/types"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

var (
	ErrNotFound          = errors.New("delivery not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrForbidden         = errors.New("actor not entitled to this transition")
	ErrConflict          = errors.New("delivery state conflict")
	ErrBadRequest        = errors.New("bad request")
)

type CreateCommand struct {
	RequesterID types.ID
	Pickup      types.Point
	Dropoff     types.Point
}

type AcceptCommand struct {
	DeliveryID types.ID
	CarrierID  types.ID
}

// TransitionCommand is a requested status change from an authenticated actor.
type TransitionCommand struct {
	DeliveryID types.ID
	To         Status
	ActorRole  string
	ActorID    types.ID
	Message    string
}

// CompleteCommand marks a delivery delivered. Reachable only through the
// confirmation-code redemption flow; there is no handler route to it.
type CompleteCommand struct {
	DeliveryID types.ID
	ActorRole  string
	ActorID    types.ID
	Message    string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.RequesterID == "" {
		return "", ErrBadRequest
	}
	id := newID()
	now := time.Now()
	d := &Delivery{
		ID:          id,
		RequesterID: cmd.RequesterID,
		Status:      StatusPending,
		Pickup:      cmd.Pickup,
		Dropoff:     cmd.Dropoff,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, d); err != nil {
		return "", err
	}
	_ = s.store.AppendHistory(ctx, &HistoryEntry{
		DeliveryID: id,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorRole:  RoleRequester,
		ActorID:    &cmd.RequesterID,
		Message:    "delivery created",
		CreatedAt:  now,
	})
	return id, nil
}

// Accept assigns the carrier while moving pending → accepted. The CAS on
// (status, status_version) guarantees at most one carrier wins.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) (*Delivery, error) {
	if cmd.CarrierID == "" {
		return nil, ErrBadRequest
	}
	d, err := s.store.Get(ctx, cmd.DeliveryID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(d.Status, StatusAccepted) {
		return nil, ErrIllegalTransition
	}
	ok, err := s.store.UpdateStatus(ctx, d.ID, d.Status, StatusAccepted, d.StatusVersion, &cmd.CarrierID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	_ = s.store.AppendHistory(ctx, &HistoryEntry{
		DeliveryID: d.ID,
		FromStatus: d.Status,
		ToStatus:   StatusAccepted,
		ActorRole:  RoleCarrier,
		ActorID:    &cmd.CarrierID,
		Message:    "carrier accepted delivery",
		CreatedAt:  time.Now(),
	})
	return s.store.Get(ctx, d.ID)
}

// Transition applies a requested status change, enforcing both the
// transition graph and the role rules. Delivered is rejected here outright:
// only Complete, reached through code redemption, may finish a delivery.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Delivery, error) {
	if cmd.To == StatusDelivered {
		return nil, ErrForbidden
	}
	d, err := s.store.Get(ctx, cmd.DeliveryID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(d, cmd.To, cmd.ActorRole, cmd.ActorID); err != nil {
		return nil, err
	}
	return s.apply(ctx, d, cmd.To, cmd.ActorRole, cmd.ActorID, cmd.Message)
}

// Complete performs the out_for_delivery → delivered transition on behalf of
// the confirmation service after a successful redemption.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Delivery, error) {
	d, err := s.store.Get(ctx, cmd.DeliveryID)
	if err != nil {
		return nil, err
	}
	msg := cmd.Message
	if msg == "" {
		msg = "delivery confirmed by code"
	}
	return s.apply(ctx, d, StatusDelivered, cmd.ActorRole, cmd.ActorID, msg)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Delivery, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) History(ctx context.Context, id types.ID) ([]HistoryEntry, error) {
	return s.store.History(ctx, id)
}

func (s *Service) authorize(d *Delivery, to Status, actorRole string, actorID types.ID) error {
	if to == StatusCancelled {
		switch actorRole {
		case RoleOperator:
			return nil
		case RoleRequester:
			if d.RequesterID == actorID {
				return nil
			}
		case RoleCarrier:
			if d.CarrierID != nil && *d.CarrierID == actorID {
				return nil
			}
		}
		return ErrForbidden
	}
	// Forward transitions past accepted: assigned carrier or operator only.
	switch actorRole {
	case RoleOperator:
		return nil
	case RoleCarrier:
		if d.CarrierID != nil && *d.CarrierID == actorID {
			return nil
		}
	}
	return ErrForbidden
}

func (s *Service) apply(ctx context.Context, d *Delivery, to Status, actorRole string, actorID types.ID, message string) (*Delivery, error) {
	if !CanTransition(d.Status, to) {
		return nil, ErrIllegalTransition
	}
	ok, err := s.store.UpdateStatus(ctx, d.ID, d.Status, to, d.StatusVersion, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	var actor *types.ID
	if actorID != "" {
		actor = &actorID
	}
	_ = s.store.AppendHistory(ctx, &HistoryEntry{
		DeliveryID: d.ID,
		FromStatus: d.Status,
		ToStatus:   to,
		ActorRole:  actorRole,
		ActorID:    actor,
		Message:    message,
		CreatedAt:  time.Now(),
	})
	return s.store.Get(ctx, d.ID)
}

// SetCodeID records the delivery's current confirmation code reference.
func (s *Service) SetCodeID(ctx context.Context, id types.ID, codeID *types.ID) error {
	return s.store.SetCodeID(ctx, id, codeID)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
