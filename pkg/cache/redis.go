package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Service using Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisClient dials and pings Redis. The client is shared by the cache
// and the alert queue.
func NewRedisClient(opts ...RedisOption) (*redis.Client, error) {
	cfg := &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		MinIdleConns: 2,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisCache wraps an existing client. The client's owner closes it.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "smartenergy"
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Client returns the underlying Redis client.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Close() error {
	return nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.wrapKey(key), data, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return decode(data, dest)
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Unlink(ctx, c.wrapKeys(keys...)...).Err()
}

func (c *RedisCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	n, err := c.client.Exists(ctx, c.wrapKeys(keys...)...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TryLock acquires key with SETNX.
func (c *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.wrapKey(key), "locked", ttl).Result()
}

func (c *RedisCache) Unlock(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.wrapKey(key)).Err()
}

func (c *RedisCache) wrapKey(key string) string {
	return c.prefix + ":" + key
}

func (c *RedisCache) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = c.wrapKey(key)
	}
	return wrapped
}
