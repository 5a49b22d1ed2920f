package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "SmartEnergy/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics in a consumer group and fans messages out
// to a worker pool. Offsets are committed after success or after a DLQ write.
type Consumer struct {
	cfg      *ConsumerConfig
	logger   *applogger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	hook     ConsumerHook
	dlq      *kafka.Writer

	msgs     chan kafka.Message
	stop     chan struct{}
	stopOnce sync.Once
	readWG   sync.WaitGroup
	workWG   sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(l *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "smartenergy",
		WorkerCount: 1,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, errors.New("brokers are required")
	}

	c := &Consumer{
		cfg:      cfg,
		logger:   l,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		hook:     NoopHook{},
		msgs:     make(chan kafka.Message, cfg.BufferSize),
		stop:     make(chan struct{}),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}

	initConsumerMetrics()
	return c, nil
}

// RegisterHandler binds handler to its topic; duplicates are ignored.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.logger.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

func (c *Consumer) SetHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start begins reading every registered topic.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}

	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.workWG.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.readWG.Add(1)
		go c.read(topic, reader)
	}

	c.logger.Info("kafka consumer started",
		applogger.Int("topics", len(c.readers)),
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.String("group", c.cfg.GroupID))
	return nil
}

// Stop stops readers first, drains the buffered messages, then closes readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.stop)

		done := make(chan struct{})
		go func() {
			c.readWG.Wait()
			close(c.msgs)
			c.workWG.Wait()
			close(done)
		}()

		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.logger.Warn("close kafka reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
		if stopErr == nil {
			c.logger.Info("kafka consumer stopped")
		}
	})
	return stopErr
}

func (c *Consumer) read(topic string, reader *kafka.Reader) {
	defer c.readWG.Done()

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		msg, err := reader.FetchMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				c.logger.Warn("kafka fetch", applogger.String("topic", topic), applogger.Error(err))
				time.Sleep(time.Second)
			}
			continue
		}

		select {
		case c.msgs <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgs)))
		case <-c.stop:
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.workWG.Done()
	for msg := range c.msgs {
		c.handle(msg)
	}
}

func (c *Consumer) handle(msg kafka.Message) {
	handler, ok := c.handlers[msg.Topic]
	if !ok {
		return
	}
	start := time.Now()

	var err error
	attempts := 0
	for {
		attempts++
		err = c.invoke(handler, msg)
		if err == nil || attempts > c.cfg.RetryMax {
			break
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.stop:
			// uncommitted; redelivered after restart
			return
		}
	}

	result := "ok"
	if err != nil {
		result = "failed"
		c.logger.Error("kafka message failed",
			applogger.String("topic", msg.Topic),
			applogger.Int("attempts", attempts),
			applogger.Error(err))
		if c.dlq == nil {
			consumerHandled.WithLabelValues(msg.Topic, result).Inc()
			return
		}
		if dlqErr := c.dlq.WriteMessages(context.Background(), kafka.Message{
			Topic:   c.cfg.DLQTopic,
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: []kafka.Header{{Key: "source_topic", Value: []byte(msg.Topic)}},
		}); dlqErr != nil {
			c.logger.Error("kafka dlq write", applogger.Error(dlqErr))
			consumerHandled.WithLabelValues(msg.Topic, result).Inc()
			return
		}
		result = "dlq"
	}

	if reader := c.readers[msg.Topic]; reader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if cerr := reader.CommitMessages(ctx, msg); cerr != nil {
			c.logger.Warn("kafka commit", applogger.String("topic", msg.Topic), applogger.Error(cerr))
		}
		cancel()
	}
	consumerHandled.WithLabelValues(msg.Topic, result).Inc()
	consumerLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) invoke(handler MessageHandler, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	ctx, err := c.hook.BeforeHandle(context.Background(), msg)
	if err != nil {
		return err
	}
	err = handler.Handle(ctx, msg.Value)
	c.hook.AfterHandle(ctx, msg, err)
	return err
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min
	for i := 1; i < attempt && exp < max; i++ {
		exp *= 2
	}
	if exp > max {
		exp = max
	}
	// up to 50% jitter
	return exp - time.Duration(rand.Int63n(int64(exp)/2+1))
}

var (
	consumerQueueDepth *prometheus.GaugeVec
	consumerHandled    *prometheus.CounterVec
	consumerLatency    *prometheus.HistogramVec
	consumerOnce       sync.Once
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "smartenergy_kafka_consumer_queue_depth", Help: "Messages waiting for a worker"},
			[]string{"topic"},
		)
		consumerHandled = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "smartenergy_kafka_consumer_messages_total", Help: "Messages handled by outcome"},
			[]string{"topic", "result"},
		)
		consumerLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "smartenergy_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
