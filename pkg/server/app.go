package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SmartEnergy/internal/service/alert"
	"SmartEnergy/internal/service/ratelimit"
	"SmartEnergy/internal/usecase"
	"SmartEnergy/pkg/config"
	xhttp "SmartEnergy/pkg/http"
	pkgkafka "SmartEnergy/pkg/kafka"
	applogger "SmartEnergy/pkg/logger"
	"SmartEnergy/pkg/queue"
)

const (
	limiterSweepEvery = time.Minute
	limiterMaxIdle    = 10 * time.Minute
)

// App encapsulates the entire application lifecycle. Optional components are
// nil when their backend is disabled.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server

	dispatcher *alert.Dispatcher
	alertQueue *queue.RedisQueue
	archiver   *usecase.ReadingArchiver
	consumer   *pkgkafka.Consumer
	collector  *usecase.ReadingCollector
	limiter    *ratelimit.Limiter

	cancel context.CancelFunc
}

type Option func(*App)

// WithDispatcher drains d on shutdown.
func WithDispatcher(d *alert.Dispatcher) Option {
	return func(a *App) { a.dispatcher = d }
}

// WithAlertQueue starts and stops q with the app.
func WithAlertQueue(q *queue.RedisQueue) Option {
	return func(a *App) { a.alertQueue = q }
}

// WithArchiver starts r before serving and flushes it on shutdown.
func WithArchiver(r *usecase.ReadingArchiver) Option {
	return func(a *App) { a.archiver = r }
}

// WithConsumer runs the Kafka consumer with the app.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

// WithCollector runs the meter stream collector with the app.
func WithCollector(c *usecase.ReadingCollector) Option {
	return func(a *App) { a.collector = c }
}

// WithLimiter sweeps idle buckets while the app runs.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(a *App) { a.limiter = l }
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, logger: l, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(context.Background()); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Start brings up background workers first so the HTTP server never accepts
// readings nothing will archive or alert on.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.archiver != nil {
		a.archiver.Start()
		a.logger.Info("reading archiver started")
	}

	if a.alertQueue != nil {
		if err := a.alertQueue.Start(); err != nil {
			return err
		}
		a.logger.Info("alert queue started")
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer error", applogger.Error(err))
		}
	}

	// A gateway outage at boot is not fatal; the simulator and /usage keep working.
	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.logger.Error("meter stream error", applogger.Error(err))
		} else {
			a.logger.Info("meter stream started")
		}
	}

	if a.limiter != nil {
		go a.sweepLimiter(ctx)
	}

	return a.httpServer.Start()
}

func (a *App) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Sweep(limiterMaxIdle); n > 0 {
				a.logger.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// Shutdown stops intake first, then drains alerts and archive writes.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("meter stream stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			a.logger.Warn("alert dispatcher drain incomplete", applogger.Error(err))
		}
	}

	if a.alertQueue != nil {
		if err := a.alertQueue.Stop(ctx); err != nil {
			a.logger.Warn("alert queue stop error", applogger.Error(err))
		}
	}

	if a.archiver != nil {
		if err := a.archiver.Stop(ctx); err != nil {
			a.logger.Warn("archiver flush incomplete", applogger.Error(err))
		}
	}

	if a.cancel != nil {
		a.cancel()
	}

	a.logger.Info("shutdown complete")
	return nil
}
