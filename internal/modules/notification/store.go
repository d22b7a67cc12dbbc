// README: Notification store contract.
package notification

import (
	"context"

	"parcelo/internal/types"
)

type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID types.ID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id types.ID) error
}
