// README: Confirmation code store contract.
package confirmation

import (
	"context"
	"time"

	"parcelo/internal/types"
)

type Store interface {
	Create(ctx context.Context, c *Code) error
	// LatestByDelivery returns the most recently issued code regardless of
	// state, or ErrNotFound. Redemption reads this so expired and consumed
	// codes report their own failure rather than a generic miss.
	LatestByDelivery(ctx context.Context, deliveryID types.ID) (*Code, error)
	// Consume marks the code used. Returns false when the code was already
	// consumed by a concurrent redeemer.
	Consume(ctx context.Context, id types.ID, at time.Time, lat, lng *float64) (bool, error)
	// InvalidateActive expires all active codes for a delivery as of now.
	InvalidateActive(ctx context.Context, deliveryID types.ID, now time.Time) error
	// MarkExpired flags codes past their expiry for reporting; returns the
	// number of codes swept.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}
