package tenant

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps tenants in process memory. Service key uniqueness is
// enforced under the store lock.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Tenant
	byKey map[string]string // service key -> id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]Tenant),
		byKey: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, t Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byKey[t.ServiceKey]; ok {
		return ErrConflict
	}
	if _, ok := s.byID[t.ID]; ok {
		return ErrConflict
	}
	s.byID[t.ID] = t
	s.byKey[t.ServiceKey] = t.ID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) FindByKey(_ context.Context, serviceKey string) (Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[serviceKey]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return s.byID[id], nil
}

// List returns tenants ordered by creation time.
func (s *MemoryStore) List(_ context.Context) ([]Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Collect(maps.Values(s.byID))
	slices.SortFunc(out, func(a, b Tenant) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, p Patch, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.byID[id] = t.Apply(p, updatedAt)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byKey, t.ServiceKey)
	return nil
}
