package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"
	domsvc "SmartEnergy/internal/domain/service"
	svcmetrics "SmartEnergy/internal/service/metrics"
	applogger "SmartEnergy/pkg/logger"

	"github.com/google/uuid"
)

// Sink receives alerts once their recipient is known. Fanout delivers them
// directly; RedisRelay hands them to the durable job queue.
type Sink interface {
	Deliver(ctx context.Context, a models.Alert) error
}

type request struct {
	reason string
	power  float64
	at     time.Time
}

type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the pending alert capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithTimeout bounds contact resolution plus delivery of a single alert.
func WithTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithClock overrides the alert timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher accepts alerts on the request path and delivers them in the
// background. A full queue drops the alert; delivery errors are logged only.
type Dispatcher struct {
	resolver domsvc.ContactResolver
	sink     Sink
	metrics  domrepo.Metrics
	logger   *applogger.Logger

	workers   int
	queueSize int
	timeout   time.Duration
	now       func() time.Time

	queue     chan request
	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ domsvc.AlertDispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher and starts its workers.
func NewDispatcher(l *applogger.Logger, m domrepo.Metrics, resolver domsvc.ContactResolver, sink Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		resolver:  resolver,
		sink:      sink,
		metrics:   m,
		logger:    l,
		workers:   2,
		queueSize: 64,
		timeout:   30 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.queue = make(chan request, d.queueSize)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch queues an alert and returns immediately.
func (d *Dispatcher) Dispatch(reason string, power float64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.queue <- request{reason: reason, power: power, at: d.now()}:
		return true
	default:
		svcmetrics.AlertQueueDropped.Inc()
		d.metrics.RecordError("alert_queue_full")
		d.logger.Warn("alert queue full, dropping alert",
			applogger.String("reason", reason),
			applogger.Float64("power", power))
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for req := range d.queue {
		d.process(req)
	}
}

func (d *Dispatcher) process(req request) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	a := models.Alert{
		ID:        uuid.NewString(),
		Reason:    req.reason,
		Power:     req.power,
		CreatedAt: req.at,
	}

	contact, err := d.resolver.Resolve(ctx)
	switch {
	case err == nil:
		a.Contact = contact
	case errors.Is(err, domrepo.ErrNotFound):
		d.logger.Debug("no alert recipient registered", applogger.String("alert_id", a.ID))
	default:
		d.metrics.RecordError("alert_resolve")
		d.logger.Error("resolve alert recipient", applogger.String("alert_id", a.ID), applogger.Error(err))
	}

	if err := d.sink.Deliver(ctx, a); err != nil {
		d.metrics.RecordError("alert_deliver")
		d.logger.Error("alert not delivered",
			applogger.String("alert_id", a.ID),
			applogger.String("reason", a.Reason),
			applogger.Error(err))
	}
}

// Close stops accepting alerts and waits for queued ones until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
