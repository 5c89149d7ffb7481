package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailhub/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemory_Basic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemory[int](3)

		require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
		require.NoError(t, c.Set(ctx, "b", 2, 0))

		val, ok := c.Get(ctx, "a")
		assert.True(t, ok)
		assert.Equal(t, 1, val)

		val, ok = c.Get(ctx, "b")
		assert.True(t, ok)
		assert.Equal(t, 2, val)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("get non-existent", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemory[int](3)

		val, ok := c.Get(ctx, "missing")
		assert.False(t, ok)
		assert.Zero(t, val)
	})

	t.Run("overwrite keeps one entry", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemory[string](3)

		require.NoError(t, c.Set(ctx, "k", "old", time.Minute))
		require.NoError(t, c.Set(ctx, "k", "new", time.Minute))

		val, ok := c.Get(ctx, "k")
		assert.True(t, ok)
		assert.Equal(t, "new", val)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("delete and clear", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemory[int](3)

		require.NoError(t, c.Set(ctx, "a", 1, 0))
		require.NoError(t, c.Set(ctx, "b", 2, 0))

		require.NoError(t, c.Delete(ctx, "a"))
		require.NoError(t, c.Delete(ctx, "missing"))
		_, ok := c.Get(ctx, "a")
		assert.False(t, ok)

		require.NoError(t, c.Clear(ctx))
		assert.Equal(t, 0, c.Len())
		_, ok = c.Get(ctx, "b")
		assert.False(t, ok)
	})
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("entry expires after ttl", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		c := cache.NewMemory[int](10, cache.WithClock[int](clock.Now))

		require.NoError(t, c.Set(ctx, "a", 1, 5*time.Minute))

		clock.Advance(5*time.Minute - time.Second)
		_, ok := c.Get(ctx, "a")
		assert.True(t, ok, "entry should be live just before expiry")

		clock.Advance(time.Second)
		_, ok = c.Get(ctx, "a")
		assert.False(t, ok, "entry should be gone at expiry")
		assert.Equal(t, 0, c.Len(), "expired entry should be removed on access")
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		c := cache.NewMemory[int](10, cache.WithClock[int](clock.Now))

		require.NoError(t, c.Set(ctx, "a", 1, 0))
		clock.Advance(24 * time.Hour)

		val, ok := c.Get(ctx, "a")
		assert.True(t, ok)
		assert.Equal(t, 1, val)
	})

	t.Run("prune drops only expired entries", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		c := cache.NewMemory[int](10, cache.WithClock[int](clock.Now))

		require.NoError(t, c.Set(ctx, "short", 1, time.Minute))
		require.NoError(t, c.Set(ctx, "long", 2, time.Hour))
		clock.Advance(2 * time.Minute)

		assert.Equal(t, 1, c.Prune())
		assert.Equal(t, 1, c.Len())
		_, ok := c.Get(ctx, "long")
		assert.True(t, ok)
	})
}

func TestMemory_Eviction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemory[int](3)

		require.NoError(t, c.Set(ctx, "a", 1, 0))
		require.NoError(t, c.Set(ctx, "b", 2, 0))
		require.NoError(t, c.Set(ctx, "c", 3, 0))

		// Touch "a" so "b" becomes the oldest.
		c.Get(ctx, "a")
		require.NoError(t, c.Set(ctx, "d", 4, 0))

		_, ok := c.Get(ctx, "b")
		assert.False(t, ok, "b should have been evicted")
		_, ok = c.Get(ctx, "a")
		assert.True(t, ok)
		assert.Equal(t, 3, c.Len())
	})

	t.Run("callback sees evicted, replaced, deleted and cleared values", func(t *testing.T) {
		t.Parallel()

		evicted := make(map[string]int)
		c := cache.NewMemory[int](2, cache.WithEvictCallback(func(key string, value int) {
			evicted[key] = value
		}))

		require.NoError(t, c.Set(ctx, "a", 1, 0))
		require.NoError(t, c.Set(ctx, "b", 2, 0))
		require.NoError(t, c.Set(ctx, "c", 3, 0))
		assert.Equal(t, 1, evicted["a"])

		require.NoError(t, c.Set(ctx, "b", 20, 0))
		assert.Equal(t, 2, evicted["b"])

		require.NoError(t, c.Delete(ctx, "c"))
		assert.Equal(t, 3, evicted["c"])

		require.NoError(t, c.Clear(ctx))
		assert.Equal(t, 20, evicted["b"])
	})

	t.Run("non-positive capacity falls back to default", func(t *testing.T) {
		t.Parallel()
		c := cache.NewMemory[int](0)
		for i := range cache.DefaultCapacity + 1 {
			require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), i, 0))
		}
		assert.Equal(t, cache.DefaultCapacity, c.Len())
	})
}

func TestMemory_Concurrency(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := cache.NewMemory[int](50)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%10)
			_ = c.Set(ctx, key, n, time.Minute)
			c.Get(ctx, key)
			if n%7 == 0 {
				_ = c.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}

func TestMemory_Run(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.NewMemory[int](10, cache.WithClock[int](clock.Now))
	require.NoError(t, c.Set(context.Background(), "a", 1, time.Second))
	clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 5*time.Millisecond) }()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
