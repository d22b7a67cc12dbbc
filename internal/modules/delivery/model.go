// README: Delivery aggregate, status definitions, and transition table.
package delivery

import (
	"time"

	"parcelo/internal/types"
)

type Status string

const (
	StatusNone           Status = "none"
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusPickedUp       Status = "picked_up"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// Role names match the platform's actor model.
const (
	RoleRequester = "requester"
	RoleCarrier   = "carrier"
	RoleMerchant  = "merchant"
	RoleOperator  = "operator"
)

type Delivery struct {
	ID            types.ID
	RequesterID   types.ID
	CarrierID     *types.ID
	Status        Status
	StatusVersion int
	Pickup        types.Point
	Dropoff       types.Point
	CodeID        *types.ID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HistoryEntry is one row of the tracking history appended per transition.
type HistoryEntry struct {
	ID         int64
	DeliveryID types.ID
	FromStatus Status
	ToStatus   Status
	ActorRole  string
	ActorID    *types.ID
	Message    string
	CreatedAt  time.Time
}

// AllowedTransitions represents the delivery status flow as code. Forward
// edges are strictly linear; cancelled is reachable from every non-terminal
// state and, like delivered, has no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusPending:        {StatusAccepted, StatusCancelled},
	StatusAccepted:       {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusInTransit, StatusCancelled},
	StatusInTransit:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// InProgress reports whether a carrier may report location samples while
// the delivery is in status s.
func (s Status) InProgress() bool {
	switch s {
	case StatusAccepted, StatusPickedUp, StatusInTransit, StatusOutForDelivery:
		return true
	}
	return false
}

// Progress returns the presentation percentage for a status. The switch is
// exhaustive over the closed enum so a new status fails the default check
// in tests instead of silently reading as zero.
func Progress(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 20
	case StatusPickedUp:
		return 40
	case StatusInTransit:
		return 70
	case StatusOutForDelivery:
		return 90
	case StatusDelivered:
		return 100
	case StatusCancelled:
		return 0
	}
	return 0
}
