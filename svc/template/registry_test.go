package template_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailhub/pkg/apperr"
	"github.com/dmitrymomot/mailhub/pkg/cache"
	"github.com/dmitrymomot/mailhub/svc/render"
	"github.com/dmitrymomot/mailhub/svc/template"
)

type countingStore struct {
	template.Store
	lists   atomic.Int32
	lookups atomic.Int32
}

func (s *countingStore) ListByService(ctx context.Context, serviceID string) ([]template.Template, error) {
	s.lists.Add(1)
	return s.Store.ListByService(ctx, serviceID)
}

func (s *countingStore) FindByServiceAndType(ctx context.Context, serviceID string, typ render.EventType) (template.Template, error) {
	s.lookups.Add(1)
	return s.Store.FindByServiceAndType(ctx, serviceID, typ)
}

type fixture struct {
	registry *template.Registry
	store    *countingStore
	now      *time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	now := time.Date(2030, time.January, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := &countingStore{Store: template.NewMemoryStore()}
	c := cache.NewMemory[template.Set](100, cache.WithClock[template.Set](clock))
	return fixture{
		registry: template.NewRegistry(store, c, template.WithClock(clock)),
		store:    store,
		now:      &now,
	}
}

func welcomeInput(serviceID string) template.Input {
	return template.Input{
		ServiceID:    serviceID,
		TemplateType: render.EventWelcome,
		Subject:      "Hi {{name}}",
		HTMLTemplate: "<p>Hello {{name}}</p>",
	}
}

func TestRegistry_Create(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.registry.Create(ctx, welcomeInput("svc-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{"name"}, created.AvailableVariables, "defaults from the event type")
	assert.Equal(t, *f.now, created.CreatedAt)

	_, err = f.registry.Create(ctx, welcomeInput("svc-1"))
	assert.ErrorIs(t, err, template.ErrConflict)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.registry.Create(ctx, welcomeInput("svc-2"))
	assert.NoError(t, err, "uniqueness is per tenant")

	in := welcomeInput("svc-1")
	in.TemplateType = "newsletter"
	_, err = f.registry.Create(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	custom := template.Input{ServiceID: "svc-1", TemplateType: render.EventCustom, Subject: "s", HTMLTemplate: "h"}
	got, err := f.registry.Create(ctx, custom)
	require.NoError(t, err)
	assert.NotNil(t, got.AvailableVariables)
	assert.Empty(t, got.AvailableVariables)

	explicit := template.Input{
		ServiceID: "svc-1", TemplateType: render.EventVerification,
		Subject: "s", HTMLTemplate: "h", AvailableVariables: []string{"code"},
	}
	got, err = f.registry.Create(ctx, explicit)
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, got.AvailableVariables)
}

func TestRegistry_ConflictOnInactiveWhileSetCached(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.registry.Create(ctx, welcomeInput("svc-1"))
	require.NoError(t, err)
	inactive := false
	_, err = f.registry.Update(ctx, created.ID, template.Patch{IsActive: &inactive})
	require.NoError(t, err)

	// the cached set only holds active templates, so the existence check
	// misses; the store constraint still rejects the duplicate
	_, err = f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)
	_, err = f.registry.Create(ctx, welcomeInput("svc-1"))
	assert.ErrorIs(t, err, template.ErrConflict)
}

func TestDefaultVariables(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"name", "verificationToken", "verificationUrl"}, template.DefaultVariables(render.EventVerification))
	assert.Equal(t, []string{"name", "resetToken", "resetUrl"}, template.DefaultVariables(render.EventPasswordReset))
	assert.Equal(t, []string{"name", "senderName"}, template.DefaultVariables(render.EventFriendRequest))
	assert.Equal(t, []string{"name", "friendName"}, template.DefaultVariables(render.EventFriendAccepted))
	assert.Empty(t, template.DefaultVariables(render.EventCustom))
	assert.Empty(t, template.DefaultVariables("unknown"))
}

func TestRegistry_FindByServiceAndType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("miss queries the store without populating the set", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.registry.Create(ctx, welcomeInput("svc-1"))
		require.NoError(t, err)

		got, err := f.registry.FindByServiceAndType(ctx, "svc-1", render.EventWelcome)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Hi {{name}}", got.Subject)

		_, err = f.registry.FindByServiceAndType(ctx, "svc-1", render.EventWelcome)
		require.NoError(t, err)
		assert.Equal(t, int32(0), f.store.lists.Load())

		missing, err := f.registry.FindByServiceAndType(ctx, "svc-1", render.EventPasswordReset)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("hit answers from the cached set", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.registry.Create(ctx, welcomeInput("svc-1"))
		require.NoError(t, err)

		_, err = f.registry.GetAllTemplatesForService(ctx, "svc-1")
		require.NoError(t, err)
		base := f.store.lookups.Load()

		got, err := f.registry.FindByServiceAndType(ctx, "svc-1", render.EventWelcome)
		require.NoError(t, err)
		require.NotNil(t, got)

		missing, err := f.registry.FindByServiceAndType(ctx, "svc-1", render.EventFriendAccepted)
		require.NoError(t, err)
		assert.Nil(t, missing)

		assert.Equal(t, base, f.store.lookups.Load())
	})
}

func TestRegistry_GetActiveTemplate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.registry.GetActiveTemplate(ctx, "svc-1", render.EventWelcome)
	require.NoError(t, err)
	assert.Nil(t, got, "absent template is not an error")

	created, err := f.registry.Create(ctx, welcomeInput("svc-1"))
	require.NoError(t, err)

	got, err = f.registry.GetActiveTemplate(ctx, "svc-1", render.EventWelcome)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	inactive := false
	_, err = f.registry.Update(ctx, created.ID, template.Patch{IsActive: &inactive})
	require.NoError(t, err)

	got, err = f.registry.GetActiveTemplate(ctx, "svc-1", render.EventWelcome)
	require.NoError(t, err)
	assert.Nil(t, got, "inactive template falls back")
}

func TestRegistry_GetAllTemplatesForService(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	welcome, err := f.registry.Create(ctx, welcomeInput("svc-1"))
	require.NoError(t, err)
	reset, err := f.registry.Create(ctx, template.Input{
		ServiceID: "svc-1", TemplateType: render.EventPasswordReset, Subject: "s", HTMLTemplate: "h",
	})
	require.NoError(t, err)
	inactive := false
	_, err = f.registry.Update(ctx, reset.ID, template.Patch{IsActive: &inactive})
	require.NoError(t, err)

	set, err := f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Len(t, set, 1)
	assert.Equal(t, welcome.ID, set[render.EventWelcome].ID)

	_, err = f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.store.lists.Load(), "second call served from cache")

	// mutating the result must not leak into the cache
	delete(set, render.EventWelcome)
	again, err := f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Len(t, again, 1)

	*f.now = f.now.Add(template.DefaultCacheTTL)
	_, err = f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.store.lists.Load(), "expired set is reloaded")

	all, err := f.registry.FindAllByService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Len(t, all, 2, "admin listing is unfiltered")
}

func TestRegistry_MutationsInvalidateSet(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.registry.Create(ctx, welcomeInput("svc-1"))
	require.NoError(t, err)
	_, err = f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)

	subject := "Updated {{name}}"
	*f.now = f.now.Add(time.Second)
	updated, err := f.registry.Update(ctx, created.ID, template.Patch{Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, subject, updated.Subject)
	assert.Equal(t, "<p>Hello {{name}}</p>", updated.HTMLTemplate)
	assert.Equal(t, *f.now, updated.UpdatedAt)

	got, err := f.registry.GetActiveTemplate(ctx, "svc-1", render.EventWelcome)
	require.NoError(t, err)
	assert.Equal(t, subject, got.Subject)

	set, err := f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, subject, set[render.EventWelcome].Subject)

	require.NoError(t, f.registry.Delete(ctx, created.ID))
	set, err = f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Empty(t, set)

	assert.ErrorIs(t, f.registry.Delete(ctx, created.ID), template.ErrNotFound)
	_, err = f.registry.Update(ctx, created.ID, template.Patch{Subject: &subject})
	assert.ErrorIs(t, err, template.ErrNotFound)
	_, err = f.registry.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, template.ErrNotFound)
}

func TestRegistry_CreateDefaultTemplates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.Create(ctx, welcomeInput("svc-1"))
	require.NoError(t, err)

	created, err := f.registry.CreateDefaultTemplates(ctx, "svc-1")
	require.NoError(t, err)
	assert.Len(t, created, 5, "existing welcome template is skipped")
	for _, tpl := range created {
		assert.NotEqual(t, render.EventWelcome, tpl.TemplateType)
		assert.Equal(t, render.RequiredVariables(tpl.TemplateType), tpl.AvailableVariables)
	}

	again, err := f.registry.CreateDefaultTemplates(ctx, "svc-1")
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := f.registry.FindAllByService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	seen := map[render.EventType]int{}
	for _, tpl := range all {
		seen[tpl.TemplateType]++
	}
	for _, entry := range render.Catalog() {
		assert.Equal(t, 1, seen[entry.Type], entry.Type)
	}
	assert.Zero(t, seen[render.EventCustom])
}

type failingStore struct {
	template.Store
}

func (failingStore) Create(context.Context, template.Template) error {
	return errors.New("store down")
}

func TestRegistry_CreateDefaultTemplatesPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	r := template.NewRegistry(failingStore{Store: template.NewMemoryStore()}, cache.NewMemory[template.Set](10))
	created, err := r.CreateDefaultTemplates(context.Background(), "svc-1")
	require.Error(t, err)
	assert.Empty(t, created)
}

func TestRegistry_ClearCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.registry.Create(ctx, welcomeInput("svc-1"))
	require.NoError(t, err)
	_, err = f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)

	require.NoError(t, f.registry.ClearCache(ctx))
	_, err = f.registry.GetAllTemplatesForService(ctx, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.store.lists.Load())
}
