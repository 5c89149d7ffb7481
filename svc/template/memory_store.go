package template

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/mailhub/svc/render"
)

type pairKey struct {
	serviceID string
	typ       render.EventType
}

// MemoryStore keeps templates in process memory. The (service id, template
// type) pair is unique under the store lock.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Template
	byPair map[pairKey]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]Template),
		byPair: make(map[pairKey]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := pairKey{t.ServiceID, t.TemplateType}
	if _, ok := s.byPair[k]; ok {
		return ErrConflict
	}
	if _, ok := s.byID[t.ID]; ok {
		return ErrConflict
	}
	t.AvailableVariables = slices.Clone(t.AvailableVariables)
	s.byID[t.ID] = t
	s.byPair[k] = t.ID
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return clone(t), nil
}

func (s *MemoryStore) FindByServiceAndType(_ context.Context, serviceID string, typ render.EventType) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[pairKey{serviceID, typ}]
	if !ok {
		return Template{}, ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// ListByService returns the templates of serviceID ordered by creation time.
func (s *MemoryStore) ListByService(_ context.Context, serviceID string) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0)
	for _, t := range s.byID {
		if t.ServiceID == serviceID {
			out = append(out, clone(t))
		}
	}
	slices.SortFunc(out, func(a, b Template) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.TemplateType, b.TemplateType))
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
	delete(s.byPair, pairKey{t.ServiceID, t.TemplateType})
	return nil
}

func clone(t Template) Template {
	t.AvailableVariables = slices.Clone(t.AvailableVariables)
	return t
}
