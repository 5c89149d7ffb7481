// Package dispatch resolves a tenant and template for an email event, renders
// it and hands it to the tenant's transporter.
//
// Send methods never return errors: an unknown or inactive tenant, a missing
// template or a transport failure all come back as a Result with Success set
// to false. Transporters are cached per tenant and rebuilt when the tenant's
// SMTP settings change.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/mailhub/pkg/cache"
	"github.com/dmitrymomot/mailhub/pkg/email"
	"github.com/dmitrymomot/mailhub/pkg/logger"
	"github.com/dmitrymomot/mailhub/svc/render"
	"github.com/dmitrymomot/mailhub/svc/template"
	"github.com/dmitrymomot/mailhub/svc/tenant"
)

const (
	// DefaultTransporterCapacity bounds the number of live transporters.
	DefaultTransporterCapacity = 256
	// DefaultTransporterMaxAge forces a periodic rebuild even without admin changes.
	DefaultTransporterMaxAge = 30 * time.Minute
)

// TenantResolver returns active tenants by service key.
type TenantResolver interface {
	GetActive(ctx context.Context, serviceKey string) (*tenant.Tenant, error)
}

// TemplateResolver returns the active template of a tenant for an event
// type, or nil when the built-in default applies.
type TemplateResolver interface {
	GetActiveTemplate(ctx context.Context, serviceID string, typ render.EventType) (*template.Template, error)
}

type cachedTransporter struct {
	email.Transporter
	fingerprint string
}

// Dispatcher sends tenant emails.
type Dispatcher struct {
	tenants   TenantResolver
	templates TemplateResolver
	engine    *render.Engine
	factory   email.TransportFactory
	log       *slog.Logger
	metrics   *metrics

	capacity int
	maxAge   time.Duration

	mu           sync.Mutex // serializes get-or-create on transporters
	transporters *cache.Memory[*cachedTransporter]
	closing      sync.WaitGroup // evicted transporters still closing
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithMetricsRegisterer registers the dispatch metrics with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(d *Dispatcher) {
		d.metrics = newMetrics(reg)
	}
}

// WithTransporterCapacity bounds the transporter cache. The least recently
// used transporter is closed when the bound is exceeded.
func WithTransporterCapacity(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.capacity = n
		}
	}
}

// WithTransporterMaxAge sets how long a transporter is reused. Zero disables expiry.
func WithTransporterMaxAge(age time.Duration) Option {
	return func(d *Dispatcher) {
		if age >= 0 {
			d.maxAge = age
		}
	}
}

// New creates a Dispatcher.
func New(tenants TenantResolver, templates TemplateResolver, engine *render.Engine, factory email.TransportFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tenants:   tenants,
		templates: templates,
		engine:    engine,
		factory:   factory,
		log:       logger.Nop(),
		capacity:  DefaultTransporterCapacity,
		maxAge:    DefaultTransporterMaxAge,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = newMetrics(nil)
	}
	d.log = d.log.With(logger.Component("dispatch"))
	d.transporters = cache.NewMemory(d.capacity,
		// Close waits for an in-flight send on the same transporter, so it
		// must not run under d.mu or the cache lock.
		cache.WithEvictCallback(func(tenantID string, t *cachedTransporter) {
			d.closing.Add(1)
			go d.closeTransporter(tenantID, t)
		}),
	)
	return d
}

func (d *Dispatcher) SendWelcomeEmail(ctx context.Context, serviceKey, to, name string) Result {
	return d.sendEvent(ctx, serviceKey, render.EventWelcome, to, map[string]string{
		"name": name,
	})
}

// SendVerificationEmail sends the verification email. The URL is built by
// the caller; the token is exposed to templates as well.
func (d *Dispatcher) SendVerificationEmail(ctx context.Context, serviceKey, to, name, verificationToken, verificationURL string) Result {
	return d.sendEvent(ctx, serviceKey, render.EventVerification, to, map[string]string{
		"name":              name,
		"verificationToken": verificationToken,
		"verificationUrl":   verificationURL,
	})
}

func (d *Dispatcher) SendPasswordResetEmail(ctx context.Context, serviceKey, to, name, resetToken, resetURL string) Result {
	return d.sendEvent(ctx, serviceKey, render.EventPasswordReset, to, map[string]string{
		"name":       name,
		"resetToken": resetToken,
		"resetUrl":   resetURL,
	})
}

func (d *Dispatcher) SendPasswordChangedEmail(ctx context.Context, serviceKey, to, name string) Result {
	return d.sendEvent(ctx, serviceKey, render.EventPasswordChanged, to, map[string]string{
		"name": name,
	})
}

func (d *Dispatcher) SendFriendRequestEmail(ctx context.Context, serviceKey, to, name, senderName string) Result {
	return d.sendEvent(ctx, serviceKey, render.EventFriendRequest, to, map[string]string{
		"name":       name,
		"senderName": senderName,
	})
}

func (d *Dispatcher) SendFriendAcceptedEmail(ctx context.Context, serviceKey, to, name, friendName string) Result {
	return d.sendEvent(ctx, serviceKey, render.EventFriendAccepted, to, map[string]string{
		"name":       name,
		"friendName": friendName,
	})
}

// SendWithTemplate sends any event type with caller-supplied variables.
func (d *Dispatcher) SendWithTemplate(ctx context.Context, serviceKey string, typ render.EventType, to string, vars map[string]string) Result {
	if !typ.Valid() {
		d.metrics.observeSend("invalid", outcomeError, time.Now())
		return failed(ErrInvalidEventType)
	}
	return d.sendEvent(ctx, serviceKey, typ, to, vars)
}

// SendCustomEmail sends literal content without a template lookup or substitution.
func (d *Dispatcher) SendCustomEmail(ctx context.Context, serviceKey, to, subject, html, text string) Result {
	start := time.Now()
	event := string(render.EventCustom)

	t, err := d.tenants.GetActive(ctx, serviceKey)
	if err != nil {
		return d.fail(ctx, event, start, err, logger.TenantKey(serviceKey))
	}
	ctx = tenant.WithTenant(ctx, t)

	return d.deliver(ctx, t, render.EventCustom, to, render.Content{Subject: subject, HTML: html, Text: text}, start)
}

// InvalidateTransporter drops the cached transporter of a tenant so the next
// send builds one from the current settings. The dropped transporter is
// closed in the background once its in-flight sends finish.
func (d *Dispatcher) InvalidateTransporter(ctx context.Context, tenantID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = d.transporters.Delete(ctx, tenantID)
	d.log.InfoContext(ctx, "transporter invalidated", logger.TenantID(tenantID))
}

// Run closes expired transporters every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	return d.transporters.Run(ctx, interval)
}

// Close closes every cached transporter and waits for evicted ones to finish closing.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	err := d.transporters.Clear(context.Background())
	d.mu.Unlock()

	d.closing.Wait()
	return err
}

func (d *Dispatcher) closeTransporter(tenantID string, t *cachedTransporter) {
	defer d.closing.Done()
	if err := t.Close(); err != nil {
		d.log.Warn("failed to close transporter", logger.TenantID(tenantID), logger.Error(err))
	}
}

func (d *Dispatcher) sendEvent(ctx context.Context, serviceKey string, typ render.EventType, to string, vars map[string]string) Result {
	start := time.Now()

	t, err := d.tenants.GetActive(ctx, serviceKey)
	if err != nil {
		return d.fail(ctx, string(typ), start, err, logger.TenantKey(serviceKey))
	}
	ctx = tenant.WithTenant(ctx, t)

	content, err := d.resolveContent(ctx, t.ID, typ)
	if err != nil {
		return d.fail(ctx, string(typ), start, err)
	}

	rendered := d.engine.Render(content, branding(t), vars)
	return d.deliver(ctx, t, typ, to, rendered, start)
}

// resolveContent picks the tenant's active template, falling back to the
// built-in default for the event type.
func (d *Dispatcher) resolveContent(ctx context.Context, tenantID string, typ render.EventType) (render.Content, error) {
	tpl, err := d.templates.GetActiveTemplate(ctx, tenantID, typ)
	if err != nil {
		return render.Content{}, err
	}
	if tpl != nil {
		return tpl.Content(), nil
	}

	content, ok := d.engine.Default(typ)
	if !ok {
		return render.Content{}, ErrNoTemplate
	}
	d.log.DebugContext(ctx, "using built-in template", logger.TemplateType(typ))
	return content, nil
}

func (d *Dispatcher) deliver(ctx context.Context, t *tenant.Tenant, typ render.EventType, to string, c render.Content, start time.Time) Result {
	tr, err := d.transporter(ctx, t)
	if err != nil {
		return d.fail(ctx, string(typ), start, err)
	}

	name, address := t.Sender()
	id, err := tr.Send(ctx, email.Message{
		To:        to,
		FromName:  name,
		FromEmail: address,
		Subject:   c.Subject,
		HTML:      c.HTML,
		Text:      c.Text,
		Tag:       string(typ),
	})
	if err != nil {
		return d.fail(ctx, string(typ), start, err)
	}

	d.metrics.observeSend(string(typ), outcomeSuccess, start)
	d.log.InfoContext(ctx, "email sent",
		logger.TemplateType(typ),
		logger.MessageID(id),
		logger.Duration(time.Since(start)),
	)
	return succeeded(id)
}

// transporter returns the cached transporter of t, building a new one when
// none is cached or the SMTP settings changed since it was built.
func (d *Dispatcher) transporter(ctx context.Context, t *tenant.Tenant) (email.Transporter, error) {
	cfg := t.SMTPConfig()
	fp := cfg.Fingerprint()

	d.mu.Lock()
	defer d.mu.Unlock()

	if cached, ok := d.transporters.Get(ctx, t.ID); ok && cached.fingerprint == fp {
		return cached, nil
	}

	tr, err := d.factory.New(cfg)
	if err != nil {
		return nil, err
	}
	// replacing an entry retires the previous transporter through the evict callback
	if err := d.transporters.Set(ctx, t.ID, &cachedTransporter{Transporter: tr, fingerprint: fp}, d.maxAge); err != nil {
		return nil, err
	}
	d.metrics.transportersCreated.Inc()
	d.log.DebugContext(ctx, "transporter created", logger.TenantID(t.ID), slog.String("smtp_host", cfg.Host))
	return tr, nil
}

func (d *Dispatcher) fail(ctx context.Context, event string, start time.Time, err error, attrs ...slog.Attr) Result {
	outcome := outcomeError
	switch {
	case errors.Is(err, tenant.ErrNotFound):
		outcome = outcomeNotFound
	case errors.Is(err, ErrNoTemplate):
		outcome = outcomeNoTemplate
	case errors.Is(err, email.ErrFailedToSendEmail), errors.Is(err, email.ErrInvalidMessage), errors.Is(err, email.ErrInvalidConfig):
		outcome = outcomeTransport
	}
	d.metrics.observeSend(event, outcome, start)

	args := []any{slog.String("event", event), slog.String("outcome", outcome), logger.Error(err)}
	for _, a := range attrs {
		args = append(args, a)
	}
	d.log.WarnContext(ctx, "email not sent", args...)
	return failed(err)
}

func branding(t *tenant.Tenant) render.Branding {
	return render.Branding{
		ServiceName:     t.ServiceName,
		FrontendURL:     t.FrontendURL,
		LogoURL:         t.LogoURL,
		PrimaryColor:    t.PrimaryColor,
		SecondaryColor:  t.SecondaryColor,
		BackgroundColor: t.BackgroundColor,
		CardColor:       t.CardColor,
		TextColor:       t.TextColor,
		MutedTextColor:  t.MutedTextColor,
	}
}
