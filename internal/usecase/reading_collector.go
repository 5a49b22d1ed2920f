package usecase

import (
	"context"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	mid "SmartEnergy/internal/middleware"
	applogger "SmartEnergy/pkg/logger"
)

// ReadingCollector feeds readings from a meter gateway stream through the
// ingest pipeline.
type ReadingCollector struct {
	stream  drepo.MeterStream
	pipe    *mid.IngestPipeline
	metrics drepo.Metrics
	logger  *applogger.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewReadingCollector creates a collector from stream into pipe.
func NewReadingCollector(stream drepo.MeterStream, pipe *mid.IngestPipeline, metrics drepo.Metrics, l *applogger.Logger) *ReadingCollector {
	return &ReadingCollector{stream: stream, pipe: pipe, metrics: metrics, logger: l}
}

func (c *ReadingCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *ReadingCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		_ = c.stream.Close()
		return err
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.pipe.Start(ctx)

	go c.consume(ctx)
	return nil
}

func (c *ReadingCollector) consume(ctx context.Context) {
	defer close(c.done)

	readings, errs := c.stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.metrics.RecordError("stream")
			c.logger.Warn("meter stream interrupted, reconnecting", applogger.Error(err))
			if err := c.stream.Reconnect(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("meter stream reconnect", applogger.Error(err))
			}
			readings, errs = c.stream.Read(ctx)
		case r, ok := <-readings:
			if !ok {
				readings = nil
				continue
			}
			c.process(ctx, r)
		}
	}
}

func (c *ReadingCollector) process(ctx context.Context, r *models.Reading) {
	if err := c.pipe.Process(ctx, r); err != nil {
		c.logger.Debug("stream reading rejected", applogger.String("meter", r.Meter), applogger.Error(err))
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *ReadingCollector) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
		select {
		case <-c.done:
		case <-ctx.Done():
		}
	}
	c.pipe.Stop()
	return c.stream.Close()
}
