package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/mailhub/pkg/logger"
)

const clearBatchSize = 100

// RedisStore keeps JSON-encoded values in Redis under a common key prefix,
// so several service instances can share one cache generation.
type RedisStore[V any] struct {
	client redis.UniversalClient
	prefix string
	log    *slog.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisOptions)

type redisOptions struct {
	log *slog.Logger
}

// WithRedisLogger sets the logger used to report failed reads.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(o *redisOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewRedisStore creates a store whose keys are namespaced with prefix.
// The prefix should end with a separator, e.g. "mailhub:tenants:".
func NewRedisStore[V any](client redis.UniversalClient, prefix string, opts ...RedisOption) *RedisStore[V] {
	o := redisOptions{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore[V]{
		client: client,
		prefix: prefix,
		log:    o.log.With(logger.Component("redis_cache")),
	}
}

// Get reports a miss for absent keys, undecodable payloads and Redis errors
// alike. Anything other than an absent key is logged, so an outage that turns
// every read into a store query stays visible.
func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool) {
	var value V

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false
	}
	if err != nil {
		s.log.WarnContext(ctx, "cache read failed", slog.String("key", s.prefix+key), logger.Error(err))
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		s.log.WarnContext(ctx, "cache entry is not decodable", slog.String("key", s.prefix+key), logger.Error(err))
		var zero V
		return zero, false
	}
	return value, true
}

func (s *RedisStore[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrEncodeValue, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return errors.Join(ErrCacheUnavailable, err)
	}
	return nil
}

func (s *RedisStore[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrCacheUnavailable, err)
	}
	return nil
}

// Clear deletes every key under the prefix. Keys written concurrently with
// the scan may survive; they still expire with their TTL.
func (s *RedisStore[V]) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", clearBatchSize).Iterator()

	batch := make([]string, 0, clearBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatchSize {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return errors.Join(ErrCacheUnavailable, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Join(ErrCacheUnavailable, err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return errors.Join(ErrCacheUnavailable, err)
		}
	}
	return nil
}
