// README: Delivery store contract; Postgres and in-memory implementations.
package delivery

import (
	"context"

	"parcelo/internal/types"
)

// Store persists deliveries and their tracking history.
type Store interface {
	Create(ctx context.Context, d *Delivery) error
	Get(ctx context.Context, id types.ID) (*Delivery, error)
	// UpdateStatus performs a compare-and-set on (status, status_version).
	// It returns false when another writer got there first.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, carrierID *types.ID) (bool, error)
	SetCodeID(ctx context.Context, id types.ID, codeID *types.ID) error
	AppendHistory(ctx context.Context, e *HistoryEntry) error
	History(ctx context.Context, id types.ID) ([]HistoryEntry, error)
}
