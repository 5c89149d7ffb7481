// Package cache provides the key-value stores used by the registries to hold
// tenant records and per-tenant template sets for a bounded amount of time.
//
// Two implementations share the Store interface:
//
//   - Memory: a thread-safe, capacity-bounded LRU with per-entry expiry and an
//     optional eviction callback. Expired entries are dropped lazily on Get and
//     in bulk by Prune or the Run janitor.
//   - RedisStore: values are JSON-encoded under a key prefix, expiry is
//     delegated to Redis, Clear scans and deletes the prefix.
//
// # Usage
//
//	tenants := cache.NewMemory[tenant.Tenant](1000)
//	_ = tenants.Set(ctx, "acme", t, 5*time.Minute)
//
//	if t, ok := tenants.Get(ctx, "acme"); ok {
//	    // cache hit
//	}
//
// A TTL of zero keeps the entry until it is evicted, removed, or cleared.
// This is how the dispatcher caches transporters:
//
//	transporters := cache.NewMemory[email.Transporter](256,
//	    cache.WithEvictCallback(func(_ string, t email.Transporter) { _ = t.Close() }),
//	)
//
// Cache failures are never fatal for callers: Get reports a miss, and the
// error returned from Set, Delete and Clear is meant to be logged.
package cache
