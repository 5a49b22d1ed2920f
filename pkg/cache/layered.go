package cache

import (
	"context"
	"time"
)

// LayeredCache is a two-level cache: process memory in front of Redis.
type LayeredCache struct {
	l1    *MemoryCache
	l2    Service
	l1TTL time.Duration
}

// NewLayeredCache creates a memory L1 in front of l2.
func NewLayeredCache(l2 Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000, L1TTL: 5 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		l1:    NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		l2:    l2,
		l1TTL: cfg.L1TTL,
	}
}

func (lc *LayeredCache) l1Expiry(expiration time.Duration) time.Duration {
	if expiration <= 0 || expiration > lc.l1TTL {
		return lc.l1TTL
	}
	return expiration
}

// Set writes through to L2 first so L1 never holds a value L2 rejected.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.l1.Set(ctx, key, value, lc.l1Expiry(expiration))
}

// Get reads L1 first and backfills it from L2.
func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.l1.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

// Locks live only in L2 so they are visible to every instance.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.l2.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.l2.Unlock(ctx, key)
}

func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}
