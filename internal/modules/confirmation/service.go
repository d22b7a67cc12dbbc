// README: Confirmation code service: issue, rotate, and redeem single-use codes.
package confirmation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"parcelo/internal/modules/delivery"
	"parcelo/internal/types"
)

type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewService builds the code service. ttl is the fixed validity window from
// issuance (24h in production config).
func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now}
}

var (
	ErrNotFound        = errors.New("confirmation code not found")
	ErrExpired         = errors.New("confirmation code expired")
	ErrAlreadyConsumed = errors.New("confirmation code already consumed")
	ErrMismatch        = errors.New("confirmation code mismatch")
	ErrForbidden       = errors.New("actor not entitled to this operation")
)

type Issued struct {
	CodeID    types.ID
	Value     string
	ExpiresAt time.Time
}

type RedeemCommand struct {
	DeliveryID types.ID
	Value      string
	ActorRole  string
	Notes      string
	Location   *types.Point
}

// Issue generates a fresh 6-digit code for a delivery, invalidating any
// prior unconsumed code so at most one active code exists per delivery.
// Callable by the requester or an operator; re-calling rotates the code.
func (s *Service) Issue(ctx context.Context, deliveryID types.ID, actorRole string) (Issued, error) {
	if actorRole != delivery.RoleRequester && actorRole != delivery.RoleOperator {
		return Issued{}, ErrForbidden
	}
	now := s.now()
	if err := s.store.InvalidateActive(ctx, deliveryID, now); err != nil {
		return Issued{}, err
	}
	c := &Code{
		ID:         newID(),
		DeliveryID: deliveryID,
		Value:      newCodeValue(),
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, c); err != nil {
		return Issued{}, err
	}
	return Issued{CodeID: c.ID, Value: c.Value, ExpiresAt: c.ExpiresAt}, nil
}

// Redeem validates a submitted code against the delivery's current code.
// Expiry is evaluated lazily against the wall clock. A mismatch does not
// consume the code; the carrier may retry until expiry or success.
func (s *Service) Redeem(ctx context.Context, cmd RedeemCommand) (*Code, error) {
	if cmd.ActorRole != delivery.RoleCarrier && cmd.ActorRole != delivery.RoleOperator {
		return nil, ErrForbidden
	}
	c, err := s.store.LatestByDelivery(ctx, cmd.DeliveryID)
	if err != nil {
		return nil, err
	}
	if c.Consumed {
		return nil, ErrAlreadyConsumed
	}
	now := s.now()
	if !now.Before(c.ExpiresAt) {
		return nil, ErrExpired
	}
	// Exact string match on the full 6 digits, never a prefix.
	if cmd.Value != c.Value {
		return nil, ErrMismatch
	}
	var lat, lng *float64
	if cmd.Location != nil {
		la, ln := cmd.Location.Lat, cmd.Location.Lng
		lat, lng = &la, &ln
	}
	ok, err := s.store.Consume(ctx, c.ID, now, lat, lng)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against another redeemer.
		return nil, ErrAlreadyConsumed
	}
	return s.store.LatestByDelivery(ctx, cmd.DeliveryID)
}

// RunExpiryJanitor periodically flags expired codes for reporting. The
// redemption path never depends on it; expiry is checked lazily there.
func (s *Service) RunExpiryJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.MarkExpired(ctx, s.now())
			if err != nil {
				log.Printf("confirmation: expiry sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("confirmation: marked %d codes expired", n)
			}
		}
	}
}

// newCodeValue returns exactly six ASCII digits, left-zero-padded.
func newCodeValue() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		// crypto/rand only fails when the platform's entropy source is broken.
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
