package cache

import "time"

// RedisOption configures Redis cache.
type RedisOption func(*RedisConfig)

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

// WithRedisAddr sets the Redis host and port.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
		c.Port = port
	}
}

// WithRedisAuth sets the password and database index.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sets the connection pool limits.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix sets the namespace prepended to every key.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryOption configures Memory cache.
type MemoryOption func(*MemoryConfig)

type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
	DefaultTTL      time.Duration
}

// WithMemoryMaxSize sets the LRU entry limit.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxSize = size
	}
}

// WithMemoryCleanup sets the expired-entry sweep interval.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		c.CleanupInterval = interval
	}
}

// LayeredOption configures Layered cache.
type LayeredOption func(*LayeredConfig)

type LayeredConfig struct {
	MemoryMaxSize int
	// L1TTL caps how long a value lives in memory so peers' writes become visible.
	L1TTL time.Duration
}

// WithLayeredMemorySize sets the L1 entry limit.
func WithLayeredMemorySize(size int) LayeredOption {
	return func(c *LayeredConfig) {
		c.MemoryMaxSize = size
	}
}

// WithLayeredL1TTL caps how long values stay in L1.
func WithLayeredL1TTL(ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		c.L1TTL = ttl
	}
}
