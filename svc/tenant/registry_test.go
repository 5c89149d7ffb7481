package tenant_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailhub/pkg/apperr"
	"github.com/dmitrymomot/mailhub/pkg/cache"
	"github.com/dmitrymomot/mailhub/svc/tenant"
)

// countingStore counts key lookups reaching the backing store.
type countingStore struct {
	tenant.Store
	lookups atomic.Int32
}

func (s *countingStore) FindByKey(ctx context.Context, key string) (tenant.Tenant, error) {
	s.lookups.Add(1)
	return s.Store.FindByKey(ctx, key)
}

// gatedStore blocks key lookups until release is closed and reports the
// context error the first lookup observed.
type gatedStore struct {
	tenant.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
	seen    chan error
}

func (s *gatedStore) FindByKey(ctx context.Context, key string) (tenant.Tenant, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	select {
	case s.seen <- ctx.Err():
	default:
	}
	if err := ctx.Err(); err != nil {
		return tenant.Tenant{}, err
	}
	return s.Store.FindByKey(ctx, key)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	registry *tenant.Registry
	store    *countingStore
	clock    *clock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := &clock{now: time.Date(2030, time.January, 1, 12, 0, 0, 0, time.UTC)}
	store := &countingStore{Store: tenant.NewMemoryStore()}
	c := cache.NewMemory[tenant.Tenant](100, cache.WithClock[tenant.Tenant](clk.Now))
	return fixture{
		registry: tenant.NewRegistry(store, c, tenant.WithClock(clk.Now)),
		store:    store,
		clock:    clk,
	}
}

func acmeInput() tenant.Input {
	return tenant.Input{
		ServiceKey:   "acme",
		ServiceName:  "Acme",
		FrontendURL:  "https://acme.test",
		SMTPHost:     "smtp.acme.test",
		SMTPPort:     587,
		SMTPUser:     "mailer@acme.test",
		SMTPPassword: "secret",
	}
}

func TestRegistry_Create(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.registry.Create(ctx, acmeInput())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, f.clock.Now(), created.CreatedAt)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	t.Run("duplicate key conflicts", func(t *testing.T) {
		_, err := f.registry.Create(ctx, acmeInput())
		assert.ErrorIs(t, err, tenant.ErrConflict)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("invalid key", func(t *testing.T) {
		in := acmeInput()
		in.ServiceKey = "bad key!"
		_, err := f.registry.Create(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestMemoryStore_UniqueServiceKey(t *testing.T) {
	t.Parallel()

	store := tenant.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, tenant.Tenant{ID: "1", ServiceKey: "acme"}))
	assert.ErrorIs(t, store.Create(ctx, tenant.Tenant{ID: "2", ServiceKey: "acme"}), tenant.ErrConflict)
}

func TestRegistry_ConcurrentCreateSingleWinner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.registry.Create(context.Background(), acmeInput()); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	list, err := f.registry.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegistry_GetByKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing key is nil and not negatively cached", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		got, err := f.registry.GetByKey(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)

		_, err = f.registry.GetByKey(ctx, "ghost")
		require.NoError(t, err)
		assert.Equal(t, int32(2), f.store.lookups.Load())
	})

	t.Run("hits are cached until the ttl elapses", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.registry.Create(ctx, acmeInput())
		require.NoError(t, err)
		base := f.store.lookups.Load()

		for range 3 {
			got, err := f.registry.GetByKey(ctx, "acme")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Acme", got.ServiceName)
		}
		assert.Equal(t, base+1, f.store.lookups.Load())

		f.clock.Advance(tenant.DefaultCacheTTL)
		_, err = f.registry.GetByKey(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, base+2, f.store.lookups.Load())
	})

	t.Run("cancelled caller does not fail the shared lookup", func(t *testing.T) {
		t.Parallel()
		mem := tenant.NewMemoryStore()
		require.NoError(t, mem.Create(ctx, tenant.Tenant{ID: "1", ServiceKey: "acme", ServiceName: "Acme", IsActive: true}))
		store := &gatedStore{
			Store:   mem,
			entered: make(chan struct{}),
			release: make(chan struct{}),
			seen:    make(chan error, 1),
		}
		registry := tenant.NewRegistry(store, cache.NewMemory[tenant.Tenant](10))

		callerCtx, cancel := context.WithCancel(ctx)
		errCh := make(chan error, 1)
		go func() {
			_, err := registry.GetByKey(callerCtx, "acme")
			errCh <- err
		}()
		<-store.entered

		cancel()
		assert.ErrorIs(t, <-errCh, context.Canceled)

		close(store.release)
		require.NoError(t, <-store.seen)

		got, err := registry.GetByKey(ctx, "acme")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Acme", got.ServiceName)
	})

	t.Run("returned tenants are independent copies", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.registry.Create(ctx, acmeInput())
		require.NoError(t, err)

		first, err := f.registry.GetByKey(ctx, "acme")
		require.NoError(t, err)
		first.ServiceName = "mutated"

		second, err := f.registry.GetByKey(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "Acme", second.ServiceName)
	})
}

func TestRegistry_GetActive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.GetActive(ctx, "acme")
	assert.ErrorIs(t, err, tenant.ErrNotFound)

	created, err := f.registry.Create(ctx, acmeInput())
	require.NoError(t, err)

	got, err := f.registry.GetActive(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = f.registry.Deactivate(ctx, created.ID)
	require.NoError(t, err)

	_, err = f.registry.GetActive(ctx, "acme")
	assert.ErrorIs(t, err, tenant.ErrNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	byID, err := f.registry.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, byID.IsActive, "inactive tenants stay visible by id")

	_, err = f.registry.Activate(ctx, created.ID)
	require.NoError(t, err)
	_, err = f.registry.GetActive(ctx, "acme")
	assert.NoError(t, err)
}

func TestRegistry_Update(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.registry.Create(ctx, acmeInput())
	require.NoError(t, err)

	// warm the cache
	_, err = f.registry.GetByKey(ctx, "acme")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	host := "new"
	merged, err := f.registry.Update(ctx, created.ID, tenant.Patch{SMTPHost: &host})
	require.NoError(t, err)
	assert.Equal(t, "new", merged.SMTPHost)
	assert.Equal(t, "Acme", merged.ServiceName, "unsupplied fields keep their value")
	assert.Equal(t, f.clock.Now(), merged.UpdatedAt)
	assert.Equal(t, created.CreatedAt, merged.CreatedAt)

	got, err := f.registry.GetByKey(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "new", got.SMTPHost, "update evicts the cached snapshot")

	_, err = f.registry.Update(ctx, "missing", tenant.Patch{SMTPHost: &host})
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestRegistry_Delete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.registry.Create(ctx, acmeInput())
	require.NoError(t, err)
	_, err = f.registry.GetByKey(ctx, "acme")
	require.NoError(t, err)

	require.NoError(t, f.registry.Delete(ctx, created.ID))

	got, err := f.registry.GetByKey(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, f.registry.Delete(ctx, created.ID), tenant.ErrNotFound)
	_, err = f.registry.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestRegistry_ClearCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.Create(ctx, acmeInput())
	require.NoError(t, err)
	_, err = f.registry.GetByKey(ctx, "acme")
	require.NoError(t, err)
	base := f.store.lookups.Load()

	require.NoError(t, f.registry.ClearCache(ctx))
	_, err = f.registry.GetByKey(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, base+1, f.store.lookups.Load())
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.Create(ctx, acmeInput())
	require.NoError(t, err)
	require.NoError(t, f.registry.ClearCache(ctx))
	base := f.store.lookups.Load()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.registry.GetByKey(ctx, "acme")
			assert.NoError(t, err)
			if assert.NotNil(t, got) {
				assert.Equal(t, "acme", got.ServiceKey)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, f.store.lookups.Load()-base, int32(50))
	assert.GreaterOrEqual(t, f.store.lookups.Load()-base, int32(1))
}
