// README: Tracking store contract: append-only history plus latest-sample cache.
package tracking

import (
	"context"

	"parcelo/internal/types"
)

type Store interface {
	// Append persists one sample in the audit history and updates the
	// latest-sample cache for the delivery.
	Append(ctx context.Context, s *Sample) error
	// Latest returns the most recent sample for a delivery, or ErrNoSample.
	Latest(ctx context.Context, deliveryID types.ID) (*Sample, error)
}
