// Command mailhub runs the multi-tenant email dispatch HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mailhub/modules/mailapi"
	"github.com/dmitrymomot/mailhub/pkg/clientip"
	"github.com/dmitrymomot/mailhub/pkg/config"
	"github.com/dmitrymomot/mailhub/pkg/email"
	"github.com/dmitrymomot/mailhub/pkg/httpserver"
	"github.com/dmitrymomot/mailhub/pkg/logger"
	"github.com/dmitrymomot/mailhub/pkg/requestid"
	"github.com/dmitrymomot/mailhub/svc/dispatch"
	"github.com/dmitrymomot/mailhub/svc/render"
	"github.com/dmitrymomot/mailhub/svc/template"
	"github.com/dmitrymomot/mailhub/svc/tenant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load[appConfig]()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			tenant.LoggerExtractor(),
		),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.close()

	tenants := tenant.NewRegistry(backend.tenantStore, backend.tenantCache,
		tenant.WithCacheTTL(cfg.CacheTTL),
		tenant.WithLogger(log),
	)
	templates := template.NewRegistry(backend.templateStore, backend.templateCache,
		template.WithCacheTTL(cfg.CacheTTL),
		template.WithLogger(log),
	)

	factory, err := transportFactory(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dispatcher := dispatch.New(tenants, templates, render.NewEngine(), factory,
		dispatch.WithLogger(log),
		dispatch.WithMetricsRegisterer(reg),
		dispatch.WithTransporterCapacity(cfg.TransporterCacheSize),
		dispatch.WithTransporterMaxAge(cfg.TransporterMaxAge),
	)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Error("failed to close transporters", logger.Error(err))
		}
	}()

	r := chi.NewRouter()
	r.Get("/health", httpserver.LivenessHandler())
	r.Get("/ready", httpserver.ReadinessHandler(log, backend.checks...))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Mount("/", mailapi.Router(mailapi.Options{
		Dispatcher: dispatcher,
		Tenants:    tenants,
		Templates:  templates,
		Logger:     log,

		ClientIPHeaders: cfg.ClientIPHeaders,
	}))

	httpCfg, err := config.Load[httpserver.Config]()
	if err != nil {
		return err
	}
	srv := httpserver.New(httpCfg, r, httpserver.WithLogger(log))

	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return dispatcher.Run(ctx, cfg.CachePruneInterval) })
	for _, janitor := range backend.janitors {
		g.Go(func() error { return janitor(ctx, cfg.CachePruneInterval) })
	}

	log.Info("mailhub started",
		slog.String("addr", httpCfg.Addr),
		slog.String("store", cfg.StoreDriver),
		slog.String("cache", cfg.CacheDriver),
		slog.String("transport", cfg.MailTransport),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("mailhub stopped")
	return nil
}

// transportFactory routes Postmark-hosted tenants to the Postmark API and
// everyone else to SMTP. The dev transport writes every message to disk.
func transportFactory(cfg appConfig) (email.TransportFactory, error) {
	switch cfg.MailTransport {
	case "dev":
		return email.NewDevFactory(cfg.DevMailDir), nil
	case "smtp", "":
		return email.NewRouterFactory(email.NewSMTPFactory(),
			email.Route{HostSuffix: "postmarkapp.com", Factory: email.NewPostmarkFactory()},
		), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_TRANSPORT %q", cfg.MailTransport)
	}
}
