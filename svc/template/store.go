package template

import (
	"context"
	"time"

	"github.com/dmitrymomot/mailhub/svc/render"
)

// Store persists templates. Implementations return ErrNotFound for missing
// records and ErrConflict when (service id, template type) is taken.
type Store interface {
	Create(ctx context.Context, t Template) error
	GetByID(ctx context.Context, id string) (Template, error)
	FindByServiceAndType(ctx context.Context, serviceID string, typ render.EventType) (Template, error)
	ListByService(ctx context.Context, serviceID string) ([]Template, error)
	Update(ctx context.Context, id string, p Patch, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
