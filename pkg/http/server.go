package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"SmartEnergy/pkg/http/middleware"
	applogger "SmartEnergy/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SlowThreshold   time.Duration
	CORS            bool
	MetricsPath     string // empty disables the scrape endpoint
	Logger          *applogger.Logger
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
}

// NewServer creates a new HTTP server.
func NewServer(handler Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            5000,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		SlowThreshold:   500 * time.Millisecond,
		CORS:            true,
		MetricsPath:     "/metrics",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(cfg.Logger))
	e.Use(middleware.Metrics(cfg.Logger, cfg.SlowThreshold))
	e.Use(middleware.RequestLogging(cfg.Logger))

	if cfg.CORS {
		e.Use(middleware.CORS(middleware.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
				echo.HeaderAuthorization,
			},
		}))
	}

	if handler != nil {
		handler.RegisterRoutes(e)
	}

	if cfg.MetricsPath != "" {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	return &Server{echo: e, config: cfg}
}

// Start begins serving in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	l := s.config.Logger

	go func() {
		l.Info("http server listening", applogger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server failed", applogger.Error(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.config.Logger.Info("http server stopped")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// WithHost sets the listen host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) { c.Host = host }
}

// WithPort sets the listen port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) { c.Port = port }
}

// WithTimeouts sets the read, write and shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithSlowThreshold sets when a request is logged as slow.
func WithSlowThreshold(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.SlowThreshold = d }
}

// WithCORS toggles the CORS middleware.
func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) { c.CORS = enabled }
}

// WithMetricsPath exposes Prometheus metrics at path; empty disables it.
func WithMetricsPath(path string) ServerOption {
	return func(c *ServerConfig) { c.MetricsPath = path }
}

// WithLogger sets the server logger.
func WithLogger(l *applogger.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}
