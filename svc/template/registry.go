package template

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailhub/pkg/cache"
	"github.com/dmitrymomot/mailhub/pkg/logger"
	"github.com/dmitrymomot/mailhub/svc/render"
)

// DefaultCacheTTL bounds how long a tenant's template set is served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Registry manages templates and caches the active set of each tenant.
type Registry struct {
	store Store
	cache cache.Store[Set]
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
	newID func() string
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

// NewRegistry creates a registry over store, caching template sets in c.
func NewRegistry(store Store, c cache.Store[Set], opts ...Option) *Registry {
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
	r.log = r.log.With(logger.Component("template_registry"))
	return r
}

// Create stores a new active template. It fails with ErrConflict when the
// tenant already has a template of that type.
func (r *Registry) Create(ctx context.Context, in Input) (*Template, error) {
	if !in.TemplateType.Valid() {
		return nil, ErrInvalidTemplateType
	}

	existing, err := r.FindByServiceAndType(ctx, in.ServiceID, in.TemplateType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	vars := in.AvailableVariables
	if vars == nil {
		vars = DefaultVariables(in.TemplateType)
	}

	now := r.now()
	t := Template{
		ID:                 r.newID(),
		ServiceID:          in.ServiceID,
		TemplateType:       in.TemplateType,
		Subject:            in.Subject,
		HTMLTemplate:       in.HTMLTemplate,
		TextTemplate:       in.TextTemplate,
		AvailableVariables: slices.Clone(vars),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := r.store.Create(ctx, t); err != nil {
		return nil, err
	}
	r.invalidate(ctx, t.ServiceID)

	r.log.InfoContext(ctx, "template created", logger.TenantID(t.ServiceID), logger.TemplateType(t.TemplateType))
	return &t, nil
}

// FindAllByService lists every template of the tenant, active or not,
// straight from the store.
func (r *Registry) FindAllByService(ctx context.Context, serviceID string) ([]Template, error) {
	return r.store.ListByService(ctx, serviceID)
}

func (r *Registry) FindByID(ctx context.Context, id string) (*Template, error) {
	t, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByServiceAndType returns the template for the pair or nil.
// When the tenant's set is cached the lookup is answered from it; otherwise
// the store is queried directly and the set cache is left untouched.
func (r *Registry) FindByServiceAndType(ctx context.Context, serviceID string, typ render.EventType) (*Template, error) {
	if set, ok := r.cache.Get(ctx, serviceID); ok {
		t, found := set[typ]
		if !found {
			return nil, nil
		}
		t = clone(t)
		return &t, nil
	}

	t, err := r.store.FindByServiceAndType(ctx, serviceID, typ)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetActiveTemplate returns the template only when it exists and is active.
// A nil result means the caller should fall back to the built-in default.
func (r *Registry) GetActiveTemplate(ctx context.Context, serviceID string, typ render.EventType) (*Template, error) {
	t, err := r.FindByServiceAndType(ctx, serviceID, typ)
	if err != nil || t == nil || !t.IsActive {
		return nil, err
	}
	return t, nil
}

// GetAllTemplatesForService returns the active templates of the tenant keyed
// by type, loading and caching the set on a miss.
func (r *Registry) GetAllTemplatesForService(ctx context.Context, serviceID string) (Set, error) {
	if set, ok := r.cache.Get(ctx, serviceID); ok {
		return maps.Clone(set), nil
	}

	all, err := r.store.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	set := make(Set, len(all))
	for _, t := range all {
		if t.IsActive {
			set[t.TemplateType] = t
		}
	}
	if err := r.cache.Set(ctx, serviceID, set, r.ttl); err != nil {
		r.log.WarnContext(ctx, "failed to cache template set", logger.TenantID(serviceID), logger.Error(err))
	}
	return maps.Clone(set), nil
}

// Update applies p and drops the tenant's cached set. The result is the
// pre-update snapshot merged with p.
func (r *Registry) Update(ctx context.Context, id string, p Patch) (*Template, error) {
	existing, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if err := r.store.Update(ctx, id, p, now); err != nil {
		return nil, err
	}
	r.invalidate(ctx, existing.ServiceID)

	merged := existing.Apply(p, now)
	r.log.InfoContext(ctx, "template updated", logger.TenantID(existing.ServiceID), logger.TemplateType(existing.TemplateType))
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
	r.invalidate(ctx, existing.ServiceID)

	r.log.InfoContext(ctx, "template deleted", logger.TenantID(existing.ServiceID), logger.TemplateType(existing.TemplateType))
	return nil
}

// CreateDefaultTemplates seeds the built-in catalog for the tenant. Types
// that already have a template are skipped, so repeated calls are no-ops.
// It returns the templates created by this call.
func (r *Registry) CreateDefaultTemplates(ctx context.Context, serviceID string) ([]Template, error) {
	created := make([]Template, 0, len(render.Catalog()))
	for _, entry := range render.Catalog() {
		t, err := r.Create(ctx, Input{
			ServiceID:          serviceID,
			TemplateType:       entry.Type,
			Subject:            entry.Subject,
			HTMLTemplate:       entry.HTML,
			AvailableVariables: entry.Variables,
		})
		if errors.Is(err, ErrConflict) {
			r.log.WarnContext(ctx, "template already exists, skipping",
				logger.TenantID(serviceID), logger.TemplateType(entry.Type))
			continue
		}
		if err != nil {
			return created, err
		}
		created = append(created, *t)
	}
	return created, nil
}

// ClearCache drops every cached template set.
func (r *Registry) ClearCache(ctx context.Context) error {
	if err := r.cache.Clear(ctx); err != nil {
		return err
	}
	r.log.InfoContext(ctx, "template cache cleared")
	return nil
}

// invalidate drops the whole cached set of a tenant; best effort like the
// tenant cache eviction.
func (r *Registry) invalidate(ctx context.Context, serviceID string) {
	if err := r.cache.Delete(ctx, serviceID); err != nil {
		r.log.WarnContext(ctx, "failed to invalidate template set", logger.TenantID(serviceID), logger.Error(err))
	}
}
