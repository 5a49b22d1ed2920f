package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"
	svcmetrics "SmartEnergy/internal/service/metrics"
	"SmartEnergy/internal/services/meter"
)

// Proc is the downstream the pipeline feeds.
type Proc interface {
	Process(ctx context.Context, r *models.Reading) error
}

// ProcFunc adapts a function to Proc.
type ProcFunc func(ctx context.Context, r *models.Reading) error

func (f ProcFunc) Process(ctx context.Context, r *models.Reading) error { return f(ctx, r) }

// IngestPipeline sits between a meter feed and the ingest use case.
// It validates, throttles per meter, and buffers readings while downstream fails.
type IngestPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan *models.Reading
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	started  bool
	lastSeen map[string]time.Time // per-meter last accepted time

	backoffMin time.Duration
	backoffMax time.Duration
	now        func() time.Time
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max readings per second per meter.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n >= 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer size.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBackoff sets the retry delay bounds for buffered readings.
func WithBackoff(min, max time.Duration) PipelineOption {
	return func(p *IngestPipeline) {
		if min > 0 {
			p.backoffMin = min
		}
		if max >= p.backoffMin {
			p.backoffMax = max
		}
	}
}

// NewIngestPipeline creates a pipeline feeding proc.
func NewIngestPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		proc:       proc,
		metrics:    metrics,
		maxRPS:     10,
		bufSize:    1000,
		stopCh:     make(chan struct{}),
		lastSeen:   make(map[string]time.Time),
		backoffMin: 50 * time.Millisecond,
		backoffMax: 2 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Reading, p.bufSize)
	return p
}

// Start launches background flushing of buffered readings.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.flush(ctx)
}

func (p *IngestPipeline) flush(ctx context.Context) {
	defer p.wg.Done()
	backoff := p.backoffMin
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case r := <-p.bufCh:
			svcmetrics.IngestBuffered.Set(float64(len(p.bufCh)))
			err := p.proc.Process(ctx, r)
			if err == nil {
				backoff = p.backoffMin
				continue
			}
			if errors.Is(err, meter.ErrInvalidReading) {
				p.metrics.RecordError("pipeline_invalid")
				continue
			}

			p.metrics.RecordError("pipeline_flush")
			select {
			case <-p.stopCh:
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > p.backoffMax {
				backoff = p.backoffMax
			}
			select {
			case p.bufCh <- r:
				svcmetrics.IngestBuffered.Set(float64(len(p.bufCh)))
			default:
				p.metrics.RecordError("pipeline_buffer_drop")
			}
		}
	}
}

// Stop ends background flushing. Buffered readings are discarded.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	p.wg.Wait()
}

// Buffered is the number of readings waiting for a retry.
func (p *IngestPipeline) Buffered() int {
	return len(p.bufCh)
}

// Process validates, throttles and forwards r, buffering it when downstream fails.
// Throttled readings are dropped without error.
func (p *IngestPipeline) Process(ctx context.Context, r *models.Reading) error {
	start := p.now()
	if r == nil {
		p.metrics.RecordError("pipeline_validate")
		return fmt.Errorf("%w: nil reading", meter.ErrInvalidReading)
	}
	if err := meter.Validate(*r); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(r.Meter, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, r); err != nil {
		if errors.Is(err, meter.ErrInvalidReading) {
			return err
		}
		// MeterUseCase.Ingest only fails on invalid input today; the buffer covers
		// downstreams that can fail transiently, such as a ProcFunc over Kafka.
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- r:
			svcmetrics.IngestBuffered.Set(float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func (p *IngestPipeline) allow(meterID string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	last, ok := p.lastSeen[meterID]
	if ok && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[meterID] = now
	return true
}
