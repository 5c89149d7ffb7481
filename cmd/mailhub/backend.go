package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/mailhub/pkg/cache"
	"github.com/dmitrymomot/mailhub/pkg/config"
	"github.com/dmitrymomot/mailhub/pkg/httpserver"
	"github.com/dmitrymomot/mailhub/pkg/logger"
	"github.com/dmitrymomot/mailhub/pkg/mongo"
	"github.com/dmitrymomot/mailhub/pkg/redis"
	"github.com/dmitrymomot/mailhub/pkg/secrets"
	"github.com/dmitrymomot/mailhub/svc/template"
	"github.com/dmitrymomot/mailhub/svc/tenant"
)

// backend bundles the record stores and caches selected by configuration.
type backend struct {
	tenantStore   tenant.Store
	templateStore template.Store
	tenantCache   cache.Store[tenant.Tenant]
	templateCache cache.Store[template.Set]

	// cipher seals SMTP passwords written outside the process; nil when
	// SMTP_SECRETS_KEY is unset.
	cipher tenant.SecretCipher

	checks   []httpserver.Check
	janitors []func(context.Context, time.Duration) error
	closers  []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg appConfig, log *slog.Logger) (*backend, error) {
	b := &backend{}
	if err := b.openCipher(cfg); err != nil {
		return nil, err
	}
	if err := b.openStores(ctx, cfg, log); err != nil {
		b.close()
		return nil, err
	}
	if err := b.openCaches(ctx, cfg, log); err != nil {
		b.close()
		return nil, err
	}
	return b, nil
}

// openCipher leaves b.cipher as a nil interface when no key is configured.
func (b *backend) openCipher(cfg appConfig) error {
	if cfg.SMTPSecretsKey == "" {
		return nil
	}
	key, err := secrets.ParseKey(cfg.SMTPSecretsKey)
	if err != nil {
		return err
	}
	c, err := secrets.NewCipher(key)
	if err != nil {
		return err
	}
	b.cipher = c
	return nil
}

func (b *backend) openStores(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	switch cfg.StoreDriver {
	case "memory", "":
		b.tenantStore = tenant.NewMemoryStore()
		b.templateStore = template.NewMemoryStore()
		log.Warn("using in-memory store, records are lost on restart")
		return nil
	case "mongo":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	mongoCfg, err := config.Load[mongo.Config]()
	if err != nil {
		return err
	}
	db, err := mongo.Connect(ctx, mongoCfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Error("failed to disconnect from mongodb", logger.Error(err))
		}
	})
	b.checks = append(b.checks, httpserver.Check{Name: "mongodb", Fn: mongo.Healthcheck(db)})

	if b.cipher == nil {
		log.Warn("SMTP_SECRETS_KEY is not set, smtp passwords are stored in plaintext")
	}

	tenants := tenant.NewMongoStore(db, b.cipher)
	if err := tenants.EnsureIndexes(ctx); err != nil {
		return err
	}
	templates := template.NewMongoStore(db)
	if err := templates.EnsureIndexes(ctx); err != nil {
		return err
	}
	b.tenantStore, b.templateStore = tenants, templates
	return nil
}

func (b *backend) openCaches(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	switch cfg.CacheDriver {
	case "memory", "":
		tenants := cache.NewMemory[tenant.Tenant](cfg.CacheSize)
		templates := cache.NewMemory[template.Set](cfg.CacheSize)
		b.tenantCache, b.templateCache = tenants, templates
		b.janitors = append(b.janitors, tenants.Run, templates.Run)
		return nil
	case "redis":
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", cfg.CacheDriver)
	}

	redisCfg, err := config.Load[redis.Config]()
	if err != nil {
		return err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() {
		if err := client.Close(); err != nil {
			log.Error("failed to close redis client", logger.Error(err))
		}
	})
	b.checks = append(b.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})

	tenantCache := cache.NewRedisStore[tenant.Tenant](client, redisCfg.KeyPrefix+"tenants:", cache.WithRedisLogger(log))
	if b.cipher != nil {
		b.tenantCache = tenant.NewSealedCache(tenantCache, b.cipher)
	} else {
		log.Warn("SMTP_SECRETS_KEY is not set, smtp passwords are cached in redis in plaintext")
		b.tenantCache = tenantCache
	}
	b.templateCache = cache.NewRedisStore[template.Set](client, redisCfg.KeyPrefix+"templates:", cache.WithRedisLogger(log))
	return nil
}
