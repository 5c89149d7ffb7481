package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// TenantKey records the tenant service key under the key "service_key".
func TenantKey(key string) slog.Attr {
	return slog.String("service_key", key)
}

// TenantID records the tenant record id under the key "service_id".
func TenantID(id string) slog.Attr {
	return slog.String("service_id", id)
}

// TemplateType records the template event type under the key "template_type".
func TemplateType[T ~string](t T) slog.Attr {
	return slog.String("template_type", string(t))
}

// MessageID records a transport message id under the key "message_id".
// An empty id yields an empty Attr.
func MessageID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("message_id", id)
}

// Duration records an elapsed time under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
