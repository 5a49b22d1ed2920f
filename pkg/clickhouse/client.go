package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Client owns a database/sql pool on the clickhouse driver.
type Client struct {
	db *sql.DB
}

// NewClient opens and pings a ClickHouse connection.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Host == "" {
		return nil, errors.New("host is required")
	}

	db, err := sql.Open("clickhouse", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	return &Client{db: db}, nil
}

func defaultConfig() *ClientConfig {
	return &ClientConfig{
		Port:            9000,
		Database:        "default",
		User:            "default",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
	}
}

func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema runs idempotent DDL statements in order.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func buildDSN(cfg *ClientConfig) string {
	u := url.URL{
		Scheme: "clickhouse",
		Host:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	q := url.Values{}
	if cfg.DialTimeout > 0 {
		q.Set("dial_timeout", cfg.DialTimeout.String())
	}
	if cfg.ReadTimeout > 0 {
		q.Set("read_timeout", cfg.ReadTimeout.String())
	}
	if cfg.AsyncInsert {
		q.Set("async_insert", "1")
		q.Set("wait_for_async_insert", "0")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
