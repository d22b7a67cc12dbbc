// README: In-memory confirmation code store for tests and local development.
package confirmation

import (
	"context"
	"sync"
	"time"

	"parcelo/internal/types"
)

type MemoryStore struct {
	mu    sync.Mutex
	codes []*Code
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, c *Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.codes = append(s.codes, &cp)
	return nil
}

func (s *MemoryStore) LatestByDelivery(_ context.Context, deliveryID types.ID) (*Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.codes) - 1; i >= 0; i-- {
		if s.codes[i].DeliveryID == deliveryID {
			cp := *s.codes[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Consume(_ context.Context, id types.ID, at time.Time, lat, lng *float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ID != id {
			continue
		}
		if c.Consumed {
			return false, nil
		}
		c.Consumed = true
		t := at
		c.ConsumedAt = &t
		c.ConsumedLat = lat
		c.ConsumedLng = lng
		return true, nil
	}
	return false, nil
}

func (s *MemoryStore) InvalidateActive(_ context.Context, deliveryID types.ID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.DeliveryID == deliveryID && c.Active(now) {
			c.ExpiresAt = now
		}
	}
	return nil
}

func (s *MemoryStore) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	// Expiry is evaluated lazily; nothing to flag in memory.
	return 0, nil
}
