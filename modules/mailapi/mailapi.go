// Package mailapi exposes the dispatcher and the tenant and template
// registries over HTTP.
//
// Send endpoints live under /email and answer 200 with the dispatch result
// whenever the request body is valid. Admin endpoints live under
// /admin/services and map registry errors to 400, 404 and 409.
package mailapi

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/mailhub/pkg/clientip"
	"github.com/dmitrymomot/mailhub/pkg/logger"
	"github.com/dmitrymomot/mailhub/pkg/requestid"
	"github.com/dmitrymomot/mailhub/svc/dispatch"
	"github.com/dmitrymomot/mailhub/svc/render"
	"github.com/dmitrymomot/mailhub/svc/template"
	"github.com/dmitrymomot/mailhub/svc/tenant"
)

// Dispatcher sends tenant emails.
type Dispatcher interface {
	SendWelcomeEmail(ctx context.Context, serviceKey, to, name string) dispatch.Result
	SendVerificationEmail(ctx context.Context, serviceKey, to, name, verificationToken, verificationURL string) dispatch.Result
	SendPasswordResetEmail(ctx context.Context, serviceKey, to, name, resetToken, resetURL string) dispatch.Result
	SendPasswordChangedEmail(ctx context.Context, serviceKey, to, name string) dispatch.Result
	SendFriendRequestEmail(ctx context.Context, serviceKey, to, name, senderName string) dispatch.Result
	SendFriendAcceptedEmail(ctx context.Context, serviceKey, to, name, friendName string) dispatch.Result
	SendWithTemplate(ctx context.Context, serviceKey string, typ render.EventType, to string, vars map[string]string) dispatch.Result
	SendCustomEmail(ctx context.Context, serviceKey, to, subject, html, text string) dispatch.Result
	InvalidateTransporter(ctx context.Context, tenantID string)
}

// Tenants manages mail service records.
type Tenants interface {
	Create(ctx context.Context, in tenant.Input) (*tenant.Tenant, error)
	List(ctx context.Context) ([]tenant.Tenant, error)
	GetByID(ctx context.Context, id string) (*tenant.Tenant, error)
	Update(ctx context.Context, id string, p tenant.Patch) (*tenant.Tenant, error)
	Delete(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) (*tenant.Tenant, error)
	Deactivate(ctx context.Context, id string) (*tenant.Tenant, error)
	ClearCache(ctx context.Context) error
}

// Templates manages per-tenant templates.
type Templates interface {
	Create(ctx context.Context, in template.Input) (*template.Template, error)
	FindAllByService(ctx context.Context, serviceID string) ([]template.Template, error)
	FindByID(ctx context.Context, id string) (*template.Template, error)
	Update(ctx context.Context, id string, p template.Patch) (*template.Template, error)
	Delete(ctx context.Context, id string) error
	CreateDefaultTemplates(ctx context.Context, serviceID string) ([]template.Template, error)
	ClearCache(ctx context.Context) error
}

// Options holds the dependencies of the API. Logger is optional.
type Options struct {
	Dispatcher Dispatcher
	Tenants    Tenants
	Templates  Templates
	Logger     *slog.Logger

	// ClientIPHeaders lists proxy headers trusted for the caller address.
	// Empty means clientip.DefaultHeaders.
	ClientIPHeaders []string
}

type api struct {
	dispatcher Dispatcher
	tenants    Tenants
	templates  Templates
	log        *slog.Logger
}

// Router returns the send and admin routes.
//
//	r := chi.NewRouter()
//	r.Mount("/", mailapi.Router(mailapi.Options{
//	    Dispatcher: dispatcher,
//	    Tenants:    tenants,
//	    Templates:  templates,
//	}))
func Router(opts Options) chi.Router {
	a := &api{
		dispatcher: opts.Dispatcher,
		tenants:    opts.Tenants,
		templates:  opts.Templates,
		log:        opts.Logger,
	}
	if a.log == nil {
		a.log = logger.Nop()
	}
	a.log = a.log.With(logger.Component("mailapi"))

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware(opts.ClientIPHeaders...))
	r.Use(middleware.Recoverer)

	r.Route("/email", func(r chi.Router) {
		r.Post("/welcome", sendHandler(a, a.welcome))
		r.Post("/verification", sendHandler(a, a.verification))
		r.Post("/password-reset", sendHandler(a, a.passwordReset))
		r.Post("/password-changed", sendHandler(a, a.passwordChanged))
		r.Post("/friend-request", sendHandler(a, a.friendRequest))
		r.Post("/friend-accepted", sendHandler(a, a.friendAccepted))
		r.Post("/custom", sendHandler(a, a.custom))
		r.Post("/template", sendHandler(a, a.withTemplate))
	})

	r.Route("/admin/services", func(r chi.Router) {
		r.Post("/", a.createService)
		r.Get("/", a.listServices)
		r.Post("/cache/clear", a.clearCaches)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getService)
			r.Put("/", a.updateService)
			r.Delete("/", a.deleteService)
			r.Post("/activate", a.activateService)
			r.Post("/deactivate", a.deactivateService)

			r.Route("/templates", func(r chi.Router) {
				r.Post("/", a.createTemplate)
				r.Get("/", a.listTemplates)
				r.Post("/defaults", a.createDefaultTemplates)
				r.Get("/{templateID}", a.getTemplate)
				r.Put("/{templateID}", a.updateTemplate)
				r.Delete("/{templateID}", a.deleteTemplate)
			})
		})
	})

	return r
}
