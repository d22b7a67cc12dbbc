// README: In-memory tracking store for tests and local development.
package tracking

import (
	"context"
	"sync"

	"parcelo/internal/types"
)

type MemoryStore struct {
	mu      sync.Mutex
	history map[types.ID][]Sample
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[types.ID][]Sample)}
}

func (s *MemoryStore) Append(_ context.Context, sample *Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[sample.DeliveryID] = append(s.history[sample.DeliveryID], *sample)
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, deliveryID types.ID) (*Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[deliveryID]
	if len(h) == 0 {
		return nil, ErrNoSample
	}
	cp := h[len(h)-1]
	return &cp, nil
}
