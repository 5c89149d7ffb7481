package tenant

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/mailhub/pkg/logger"
)

// contextKey prevents collisions with other packages using context values
type contextKey struct{}

// WithTenant stores the resolved tenant for the rest of the call.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(contextKey{}).(*Tenant)
	return t, ok && t != nil
}

// LoggerExtractor enriches log records with the service key of the tenant in context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if t, ok := FromContext(ctx); ok {
			return logger.TenantKey(t.ServiceKey), true
		}
		return slog.Attr{}, false
	}
}
