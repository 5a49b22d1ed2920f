package meterws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	applogger "SmartEnergy/pkg/logger"
	xutil "SmartEnergy/pkg/util"

	"github.com/gorilla/websocket"
)

// Client implements a MeterStream backed by a meter gateway WebSocket.
type Client struct {
	url            string
	meters         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	timeLayout     string
	bufferSize     int
	logger         *applogger.Logger
	dialer         *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

type Option func(*Client)

// WithMeters sets the meter IDs to subscribe to.
func WithMeters(ids ...string) Option {
	return func(c *Client) { c.meters = ids }
}

// WithReconnectDelay sets the wait between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithPingInterval sets the keepalive ping period.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

// WithTimeLayout sets the clock label layout for stream readings.
func WithTimeLayout(layout string) Option {
	return func(c *Client) {
		if layout != "" {
			c.timeLayout = layout
		}
	}
}

// WithBufferSize sets the reading channel capacity.
func WithBufferSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// New creates a gateway stream client for url.
func New(l *applogger.Logger, url string, opts ...Option) *Client {
	c := &Client{
		url:            url,
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
		timeLayout:     xutil.ClockLayout,
		bufferSize:     1024,
		logger:         l,
		dialer:         websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ drepo.MeterStream = (*Client)(nil)

// Connect dials the gateway; call Subscribe afterwards.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("meter gateway connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("meter gateway connected", applogger.String("url", c.url))
	return nil
}

type subscribeMessage struct {
	Type  string `json:"type"`
	Meter string `json:"meter"`
}

// Subscribe asks for the configured meters. With none configured the gateway
// streams every meter it knows.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return errors.New("meter gateway not connected")
	}

	meters := c.meters
	if len(meters) == 0 {
		meters = []string{"*"}
	}
	for _, m := range meters {
		if err := c.conn.WriteJSON(subscribeMessage{Type: "subscribe", Meter: m}); err != nil {
			return fmt.Errorf("subscribe %s: %w", m, err)
		}
		c.logger.Debug("meter gateway subscribed", applogger.String("meter", m))
	}
	return nil
}

type gatewaySample struct {
	Meter string   `json:"meter"`
	Power *float64 `json:"power"`
	T     int64    `json:"t"` // ms
}

type gatewayMessage struct {
	Type string          `json:"type"`
	Data []gatewaySample `json:"data"`
}

// decode turns one gateway frame into readings. Frames that are not readings
// yield nothing.
func decode(b []byte, layout string) []*models.Reading {
	var m gatewayMessage
	if err := json.Unmarshal(b, &m); err != nil || m.Type != "reading" {
		return nil
	}

	out := make([]*models.Reading, 0, len(m.Data))
	for _, d := range m.Data {
		if d.Power == nil {
			continue
		}
		ts := time.Now()
		if d.T > 0 {
			ts = time.UnixMilli(d.T)
		}
		out = append(out, &models.Reading{
			Time:  xutil.ClockLabel(ts, layout),
			Power: *d.Power,
			Meter: d.Meter,
		})
	}
	return out
}

func (c *Client) Read(ctx context.Context) (<-chan *models.Reading, <-chan error) {
	readings := make(chan *models.Reading, c.bufferSize)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn != nil {
					_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(readings)
		defer close(errs)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			errs <- errors.New("meter gateway conn nil")
			return
		}

		for {
			if ctx.Err() != nil {
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("meter gateway read: %w", err)
				}
				return
			}
			for _, r := range decode(b, c.timeLayout) {
				select {
				case readings <- r:
				default:
					c.logger.Warn("meter gateway buffer full, dropping reading", applogger.String("meter", r.Meter))
				}
			}
		}
	}()

	return readings, errs
}

func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
