package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the cache contract shared by the memory, Redis and layered backends.
// Values are JSON encoded so every backend decodes into the same dest types.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// GetOrLoad returns the cached value for key, or calls load, stores its result
// for ttl and returns it. Cache errors other than a miss fall through to load.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var v T
	if err := c.Get(ctx, key, &v); err == nil {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = c.Set(ctx, key, v, ttl)
	return v, nil
}
