package tenant

import (
	"context"
	"time"
)

// Store persists tenant records. Implementations return ErrNotFound for
// missing ids or keys and ErrConflict when a service key is taken.
type Store interface {
	Create(ctx context.Context, t Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	FindByKey(ctx context.Context, serviceKey string) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Update(ctx context.Context, id string, p Patch, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
