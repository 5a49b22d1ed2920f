package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Client owns a database/sql pool on the lib/pq driver.
type Client struct {
	db *sql.DB
}

type Option func(*sql.DB)

// WithPool sets the connection pool limits.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) Option {
	return func(db *sql.DB) {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxIdle)
		db.SetConnMaxLifetime(lifetime)
	}
}

// NewClient opens and pings a Postgres connection.
func NewClient(dsn string, opts ...Option) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("dsn is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	WithPool(10, 5, 5*time.Minute)(db)
	for _, opt := range opts {
		opt(db)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Client{db: db}, nil
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Migrate runs idempotent DDL statements in order.
func (c *Client) Migrate(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique constraint violation (23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
