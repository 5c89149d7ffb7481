package cache

import (
	"context"
	"errors"
	"time"
)

// Store is a string-keyed cache with per-entry TTL.
type Store[V any] interface {
	// Get returns the value for key and true, or the zero value and false if
	// the key is absent or expired.
	Get(ctx context.Context, key string) (V, bool)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by the store.
	Clear(ctx context.Context) error
}

var (
	ErrCacheUnavailable = errors.New("cache.errors.unavailable")
	ErrEncodeValue      = errors.New("cache.errors.encode_value")
)
