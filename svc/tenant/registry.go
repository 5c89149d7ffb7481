package tenant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/mailhub/pkg/cache"
	"github.com/dmitrymomot/mailhub/pkg/logger"
)

// DefaultCacheTTL bounds how long a tenant snapshot is served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Registry manages tenant records and a read-through cache keyed by service key.
//
// The cache is never authoritative: every mutation goes to the store first
// and then evicts the affected key. Reads racing an eviction may see the old
// snapshot for at most one TTL.
type Registry struct {
	store Store
	cache cache.Store[Tenant]
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
	newID func() string
	group singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRegistry creates a registry over store, caching lookups in c.
func NewRegistry(store Store, c cache.Store[Tenant], opts ...Option) *Registry {
	r := &Registry{
		store: store,
		cache: c,
		ttl:   DefaultCacheTTL,
		log:   logger.Nop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("tenant_registry"))
	return r
}

// Create registers a new active tenant. It fails with ErrConflict when the
// service key is already registered.
func (r *Registry) Create(ctx context.Context, in Input) (*Tenant, error) {
	if err := ValidateServiceKey(in.ServiceKey); err != nil {
		return nil, err
	}

	existing, err := r.GetByKey(ctx, in.ServiceKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	t := in.toTenant(r.newID(), r.now())
	if err := r.store.Create(ctx, t); err != nil {
		return nil, err
	}
	r.evict(ctx, t.ServiceKey)

	r.log.InfoContext(ctx, "mail service created", logger.TenantKey(t.ServiceKey), logger.TenantID(t.ID))
	return &t, nil
}

// List returns every tenant straight from the store.
func (r *Registry) List(ctx context.Context) ([]Tenant, error) {
	return r.store.List(ctx)
}

func (r *Registry) GetByID(ctx context.Context, id string) (*Tenant, error) {
	t, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByKey returns the tenant for serviceKey, or nil without error when none
// exists. Hits are served from cache; misses are not cached. Concurrent
// misses for the same key share one store query, which is not cancelled when
// a waiting caller's context is.
func (r *Registry) GetByKey(ctx context.Context, serviceKey string) (*Tenant, error) {
	if t, ok := r.cache.Get(ctx, serviceKey); ok {
		return &t, nil
	}

	// The shared query outlives any single caller: one caller giving up must
	// not fail the others waiting on the same key.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(serviceKey, func() (any, error) {
		t, err := r.store.FindByKey(flightCtx, serviceKey)
		if errors.Is(err, ErrNotFound) {
			return (*Tenant)(nil), nil
		}
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(flightCtx, serviceKey, t, r.ttl); err != nil {
			r.log.WarnContext(flightCtx, "failed to cache mail service", logger.TenantKey(serviceKey), logger.Error(err))
		}
		return &t, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	t := res.Val.(*Tenant)
	if t == nil {
		return nil, nil
	}
	// callers sharing a flight must not share the pointer
	cp := *t
	return &cp, nil
}

// GetActive returns the tenant for serviceKey. Missing and inactive tenants
// both yield ErrNotFound.
func (r *Registry) GetActive(ctx context.Context, serviceKey string) (*Tenant, error) {
	t, err := r.GetByKey(ctx, serviceKey)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.IsActive {
		return nil, ErrNotFound
	}
	return t, nil
}

// Update applies p to the tenant with id and evicts its cache entry.
// The returned tenant is the pre-update snapshot merged with p; it is not
// re-read from the store.
func (r *Registry) Update(ctx context.Context, id string, p Patch) (*Tenant, error) {
	existing, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if err := r.store.Update(ctx, id, p, now); err != nil {
		return nil, err
	}
	r.evict(ctx, existing.ServiceKey)

	merged := existing.Apply(p, now)
	r.log.InfoContext(ctx, "mail service updated",
		logger.TenantKey(existing.ServiceKey),
		slog.Bool("smtp_changed", p.TouchesSMTP()),
	)
	return &merged, nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	existing, err := r.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, existing.ServiceKey)

	r.log.InfoContext(ctx, "mail service deleted", logger.TenantKey(existing.ServiceKey), logger.TenantID(id))
	return nil
}

func (r *Registry) Activate(ctx context.Context, id string) (*Tenant, error) {
	active := true
	return r.Update(ctx, id, Patch{IsActive: &active})
}

func (r *Registry) Deactivate(ctx context.Context, id string) (*Tenant, error) {
	active := false
	return r.Update(ctx, id, Patch{IsActive: &active})
}

// ClearCache drops every cached tenant.
func (r *Registry) ClearCache(ctx context.Context) error {
	if err := r.cache.Clear(ctx); err != nil {
		return err
	}
	r.log.InfoContext(ctx, "mail service cache cleared")
	return nil
}

// evict is best effort: a failed eviction leaves a stale entry for at most one TTL.
func (r *Registry) evict(ctx context.Context, serviceKey string) {
	if err := r.cache.Delete(ctx, serviceKey); err != nil {
		r.log.WarnContext(ctx, "failed to evict mail service from cache", logger.TenantKey(serviceKey), logger.Error(err))
	}
}
