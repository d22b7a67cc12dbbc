// README: In-memory delivery store for tests and local development.
package delivery

import (
	"context"
	"sync"

	"parcelo/internal/types"
)

type MemoryStore struct {
	mu      sync.Mutex
	byID    map[types.ID]*Delivery
	history map[types.ID][]HistoryEntry
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[types.ID]*Delivery),
		history: make(map[types.ID][]HistoryEntry),
	}
}

func (s *MemoryStore) Create(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.byID[d.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int, carrierID *types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	if d.Status != from || d.StatusVersion != version {
		return false, nil
	}
	d.Status = to
	d.StatusVersion++
	if carrierID != nil {
		v := *carrierID
		d.CarrierID = &v
	}
	return true, nil
}

func (s *MemoryStore) SetCodeID(_ context.Context, id types.ID, codeID *types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	d.CodeID = codeID
	return nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, e *HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *e
	cp.ID = s.nextID
	s.history[e.DeliveryID] = append(s.history[e.DeliveryID], cp)
	return nil
}

func (s *MemoryStore) History(_ context.Context, id types.ID) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.history[id]))
	copy(out, s.history[id])
	return out, nil
}
