// Package redis provides a Redis-backed response cache for service-side
// deployments of the client, where several processes share one cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
)

// keyPrefix namespaces cache entries within a shared Redis instance.
const keyPrefix = "campus:cache:"

// Cache implements campus.CacheStore on Redis. A TTL of zero stores
// entries without expiry, matching the memoization contract; deployments
// that want time-based staleness can set one.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL is the optional entry lifetime. Zero means no expiry.
	TTL time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Cache{client: client, ttl: cfg.TTL}, nil
}

// Get returns the cached payload for key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return payload, true, nil
}

// Set stores payload under key.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) error {
	if err := c.client.Set(ctx, keyPrefix+key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Purge removes all entries under the cache prefix.
func (c *Cache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache purge: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache purge scan: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Compile-time interface verification.
var _ campus.CacheStore = (*Cache)(nil)
