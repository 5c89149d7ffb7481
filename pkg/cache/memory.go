package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultCapacity bounds a Memory store created with a non-positive capacity.
const DefaultCapacity = 1000

type memoryEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero means no expiry
}

// Memory is a thread-safe LRU store with per-entry expiry.
// When the store reaches its capacity, the least recently used entry is evicted.
type Memory[V any] struct {
	capacity int
	items    map[string]*list.Element
	eviction *list.List
	mu       sync.Mutex
	onEvict  func(key string, value V)
	now      func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption[V any] func(*Memory[V])

// WithEvictCallback registers fn to run whenever an entry leaves the store
// through capacity eviction, expiry, overwrite with a new value, Delete or Clear.
// The callback runs with the store lock held and must not call back into it.
func WithEvictCallback[V any](fn func(key string, value V)) MemoryOption[V] {
	return func(m *Memory[V]) {
		m.onEvict = fn
	}
}

// WithClock replaces time.Now, which is useful for expiry tests.
func WithClock[V any](now func() time.Time) MemoryOption[V] {
	return func(m *Memory[V]) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an in-memory store holding at most capacity entries.
func NewMemory[V any](capacity int, opts ...MemoryOption[V]) *Memory[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Memory[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a live entry and marks it as recently used.
// Expired entries are removed on access.
func (m *Memory[V]) Get(_ context.Context, key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	elem, ok := m.items[key]
	if !ok {
		return zero, false
	}

	entry := elem.Value.(*memoryEntry[V])
	if m.expired(entry, m.now()) {
		m.removeElement(elem)
		return zero, false
	}

	m.eviction.MoveToFront(elem)
	return entry.value, true
}

// Set adds or replaces an entry.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}

	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*memoryEntry[V])
		if m.onEvict != nil {
			m.onEvict(entry.key, entry.value)
		}
		entry.value = value
		entry.expiresAt = expiresAt
		m.eviction.MoveToFront(elem)
		return nil
	}

	elem := m.eviction.PushFront(&memoryEntry[V]{key: key, value: value, expiresAt: expiresAt})
	m.items[key] = elem

	if m.eviction.Len() > m.capacity {
		if oldest := m.eviction.Back(); oldest != nil {
			m.removeElement(oldest)
		}
	}
	return nil
}

// Delete removes key if present.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[key]; ok {
		m.removeElement(elem)
	}
	return nil
}

// Clear drops every entry, running the eviction callback for each.
func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.onEvict != nil {
		for _, elem := range m.items {
			entry := elem.Value.(*memoryEntry[V])
			m.onEvict(entry.key, entry.value)
		}
	}

	m.items = make(map[string]*list.Element)
	m.eviction.Init()
	return nil
}

// Len returns the number of entries, including expired ones not yet pruned.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eviction.Len()
}

// Prune removes every expired entry and returns how many were dropped.
func (m *Memory[V]) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, elem := range m.items {
		if m.expired(elem.Value.(*memoryEntry[V]), now) {
			m.removeElement(elem)
			removed++
		}
	}
	return removed
}

// Run prunes expired entries every interval until ctx is cancelled.
func (m *Memory[V]) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Prune()
		}
	}
}

func (m *Memory[V]) expired(entry *memoryEntry[V], now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

// Must be called with lock held.
func (m *Memory[V]) removeElement(elem *list.Element) {
	m.eviction.Remove(elem)
	entry := elem.Value.(*memoryEntry[V])
	delete(m.items, entry.key)

	if m.onEvict != nil {
		m.onEvict(entry.key, entry.value)
	}
}
