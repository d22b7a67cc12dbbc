// README: Persisted user notification record.
package notification

import (
	"time"

	"parcelo/internal/types"
)

type Notification struct {
	ID        types.ID
	UserID    types.ID
	Title     string
	Message   string
	Type      string
	ActionURL string
	CreatedAt time.Time
	ReadAt    *time.Time
}
