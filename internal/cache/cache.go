// Package cache provides a wrapper around the redis client.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache is a wrapper around the redis client.
type Cache struct {
	redis *redis.Client
}

func New(addr string) *Cache {
	return &Cache{
		redis: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Get gets a value from the cache. Returns redis.Nil if the key is absent.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.redis.Get(ctx, key).Result()
}

// Set sets a value in the cache.
func (c *Cache) Set(ctx context.Context, key string, value any, expirationTime time.Duration) error {
	return c.redis.Set(ctx, key, value, expirationTime).Err()
}

// Delete removes keys from the cache, used for invalidation on writes.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.redis.Del(ctx, keys...).Err()
}

// Ping pings the cache.
func (c *Cache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// IsMiss reports whether err is a cache miss rather than a real failure.
func IsMiss(err error) bool {
	return err == redis.Nil
}
