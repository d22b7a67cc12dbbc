// README: Confirmation code record bound 1:1 to a delivery at a point in time.
package confirmation

import (
	"time"

	"parcelo/internal/types"
)

// Code is a short-lived single-use numeric secret. Value is exactly six
// ASCII digits, left-zero-padded.
type Code struct {
	ID          types.ID
	DeliveryID  types.ID
	Value       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Consumed    bool
	ConsumedAt  *time.Time
	ConsumedLat *float64
	ConsumedLng *float64
}

// Active reports whether the code can still be redeemed at instant now.
func (c *Code) Active(now time.Time) bool {
	return !c.Consumed && now.Before(c.ExpiresAt)
}
