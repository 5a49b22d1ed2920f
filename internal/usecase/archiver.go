package usecase

import (
	"context"
	"sync"
	"time"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	applogger "SmartEnergy/pkg/logger"
)

// ReadingArchiver batches readings into the archive off the request path.
// Enqueue never blocks; a full buffer drops the reading.
type ReadingArchiver struct {
	archive      drepo.ReadingArchive
	metrics      drepo.Metrics
	logger       *applogger.Logger
	batchSize    int
	batchTimeout time.Duration

	ch        chan models.ArchivedReading
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewReadingArchiver creates an archiver; call Start before Enqueue.
func NewReadingArchiver(archive drepo.ReadingArchive, metrics drepo.Metrics, l *applogger.Logger, batchSize int, batchTimeout time.Duration) *ReadingArchiver {
	if batchSize <= 0 {
		batchSize = 500
	}
	if batchTimeout <= 0 {
		batchTimeout = 2 * time.Second
	}
	return &ReadingArchiver{
		archive:      archive,
		metrics:      metrics,
		logger:       l,
		batchSize:    batchSize,
		batchTimeout: batchTimeout,
		ch:           make(chan models.ArchivedReading, batchSize*4),
		done:         make(chan struct{}),
	}
}

var _ Archiver = (*ReadingArchiver)(nil)

// Enqueue never blocks; it reports false when the buffer is full or the archiver stopped.
func (a *ReadingArchiver) Enqueue(r models.ArchivedReading) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}
	select {
	case a.ch <- r:
		return true
	default:
		a.metrics.RecordError("archive_buffer_full")
		return false
	}
}

func (a *ReadingArchiver) Start() {
	a.startOnce.Do(func() { go a.loop() })
}

func (a *ReadingArchiver) loop() {
	defer close(a.done)

	batch := make([]models.ArchivedReading, 0, a.batchSize)
	ticker := time.NewTicker(a.batchTimeout)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-a.ch:
			if !ok {
				a.flush(batch)
				return
			}
			batch = append(batch, r)
			if len(batch) >= a.batchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (a *ReadingArchiver) flush(batch []models.ArchivedReading) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if err := a.archive.StoreBatch(ctx, batch); err != nil {
		a.metrics.RecordError("archive_store")
		a.logger.Error("archive readings", applogger.Int("count", len(batch)), applogger.Error(err))
		return
	}
	a.metrics.RecordLatency("archive_store", time.Since(start).Seconds())
}

// Stop flushes what is buffered and waits for the writer until ctx expires.
func (a *ReadingArchiver) Stop(ctx context.Context) error {
	a.Start()
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()
	})
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
