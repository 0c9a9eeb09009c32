package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores serialized projection payloads in Redis with a native
// TTL. It satisfies Cache[string]; expiry is handled by the server, so it
// intentionally does not implement Cleaner.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache[string] = (*RedisCache)(nil)

// NewRedis connects a Redis-backed cache at addr. Entries expire after ttl.
func NewRedis(addr, password string, db int, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

// Ping verifies connectivity; callers decide whether a failure is fatal.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get retrieves a value from Redis. Any error, including a plain miss, reads
// as absent.
func (r *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a value with the configured TTL. Failures are logged, not
// surfaced: the cache is an optimization, never the source of truth.
func (r *RedisCache) Set(ctx context.Context, key string, value string) {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache set failed", "key", key, "error", err)
	}
}

// Delete removes a key from Redis.
func (r *RedisCache) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		slog.WarnContext(ctx, "Redis cache delete failed", "key", key, "error", err)
	}
}

// Size returns the number of keys in the selected Redis database. It is a
// diagnostic, not on any request path.
func (r *RedisCache) Size() int {
	n, err := r.client.DBSize(context.Background()).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

// Close releases the underlying connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
