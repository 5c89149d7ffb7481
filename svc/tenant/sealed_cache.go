package tenant

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/mailhub/pkg/cache"
)

// SealedCache wraps a tenant cache that lives outside the process, such as
// Redis, and keeps the SMTP password encrypted while it is stored there. The
// service key is the encryption scope, as in MongoStore.
type SealedCache struct {
	next   cache.Store[Tenant]
	cipher SecretCipher
}

var _ cache.Store[Tenant] = (*SealedCache)(nil)

func NewSealedCache(next cache.Store[Tenant], cipher SecretCipher) *SealedCache {
	return &SealedCache{next: next, cipher: cipher}
}

// Get opens the cached password. An entry that cannot be opened, for example
// after a key rotation, is reported as a miss so the registry reloads it.
func (c *SealedCache) Get(ctx context.Context, key string) (Tenant, bool) {
	t, ok := c.next.Get(ctx, key)
	if !ok {
		return Tenant{}, false
	}
	password, err := c.cipher.Decrypt(t.ServiceKey, t.SMTPPassword)
	if err != nil {
		return Tenant{}, false
	}
	t.SMTPPassword = password
	return t, true
}

func (c *SealedCache) Set(ctx context.Context, key string, t Tenant, ttl time.Duration) error {
	sealed, err := c.cipher.Encrypt(t.ServiceKey, t.SMTPPassword)
	if err != nil {
		return fmt.Errorf("encrypt smtp password for %q: %w", t.ServiceKey, err)
	}
	t.SMTPPassword = sealed
	return c.next.Set(ctx, key, t, ttl)
}

func (c *SealedCache) Delete(ctx context.Context, key string) error {
	return c.next.Delete(ctx, key)
}

func (c *SealedCache) Clear(ctx context.Context) error {
	return c.next.Clear(ctx)
}
