// README: In-memory notification store for tests and local development.
package notification

import (
	"context"
	"sync"
	"time"

	"parcelo/internal/types"
)

type MemoryStore struct {
	mu   sync.Mutex
	list []*Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.list = append(s.list, &cp)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID types.ID, limit int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Notification
	for i := len(s.list) - 1; i >= 0 && len(out) < limit; i-- {
		if s.list[i].UserID == userID {
			out = append(out, *s.list[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.list {
		if n.ID == id {
			if n.ReadAt == nil {
				t := time.Now()
				n.ReadAt = &t
			}
			return nil
		}
	}
	return ErrNotFound
}
