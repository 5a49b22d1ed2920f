package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer wraps a kafka-go Writer. Topics are chosen per message.
type Producer struct {
	writer *kafka.Writer
	comp   string
}

// NewProducer creates a new Kafka producer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchSize:    100,
		BatchTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, errors.New("brokers are required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            parseCompression(cfg.Compression),
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		AllowAutoTopicCreation: true,
	}

	initProducerMetrics()
	return &Producer{writer: writer, comp: cfg.Compression}, nil
}

// Publish sends one message. Values other than []byte/string are JSON encoded.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishMessage adapts Publish to the (topic, payload) publisher contract used
// by the log collector and the alert channel.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

// PublishBatch writes messages to topic in one call.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	now := start.UTC()
	msgs := make([]kafka.Message, 0, len(messages))
	var total int64
	for _, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: now})
		total += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	observeProducer(topic, p.comp, total, len(msgs), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

type Message struct {
	Key   []byte
	Value interface{}
}

func encodeValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	producerMsgsTotal  *prometheus.CounterVec
	producerBytesTotal *prometheus.CounterVec
	producerLatency    *prometheus.HistogramVec
	producerOnce       sync.Once
)

func initProducerMetrics() {
	producerOnce.Do(func() {
		producerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartenergy_kafka_producer_messages_total",
				Help: "Total messages published to Kafka",
			},
			[]string{"topic", "result"},
		)
		producerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartenergy_kafka_producer_bytes_total",
				Help: "Total payload bytes published",
			},
			[]string{"topic", "compression"},
		)
		producerLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartenergy_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func observeProducer(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMsgsTotal.WithLabelValues(topic, result).Add(float64(count))
	producerBytesTotal.WithLabelValues(topic, comp).Add(float64(bytes))
	producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
