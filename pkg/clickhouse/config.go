package clickhouse

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

type ClientConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	AsyncInsert     bool
}

// WithAddr sets the server host and native port.
func WithAddr(host string, port int) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

// WithDatabase sets the database name.
func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) {
		if database != "" {
			c.Database = database
		}
	}
}

// WithCredentials sets the user and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithMaxConnections sets the pool limits.
func WithMaxConnections(maxOpen, maxIdle int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
	}
}

// WithTimeouts sets the dial and read timeouts.
func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithAsyncInsert lets the server buffer small inserts.
func WithAsyncInsert(enabled bool) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert = enabled
	}
}
