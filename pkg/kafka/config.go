package kafka

import "time"

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	BatchSize    int
	BatchTimeout time.Duration
	Async        bool
}

// WithBrokers sets the producer brokers.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression sets the codec: gzip, snappy, lz4 or zstd.
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = compression }
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

// WithMaxAttempts sets how often a write is retried.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithBatching sets how many messages or how long the writer waits before flushing.
func WithBatching(size int, timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if timeout > 0 {
			c.BatchTimeout = timeout
		}
	}
}

func WithWriteTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if d > 0 {
			c.WriteTimeout = d
		}
	}
}

// WithAsync makes writes fire-and-forget.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	MinBytes    int
	MaxBytes    int
}

// WithConsumerBrokers sets the consumer brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

// WithConsumerGroupID sets the consumer group.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if groupID != "" {
			c.GroupID = groupID
		}
	}
}

// WithConsumerWorkers sets the worker count and per-worker buffer.
func WithConsumerWorkers(count int, buffer int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
		if buffer > 0 {
			c.BufferSize = buffer
		}
	}
}

// WithConsumerRetry configures handler retry attempts and the backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		if max >= 0 {
			c.RetryMax = max
		}
		if backoffMin > 0 {
			c.BackoffMin = backoffMin
		}
		if backoffMax > 0 {
			c.BackoffMax = backoffMax
		}
	}
}

// WithConsumerDLQ sets the topic that receives messages which exhausted retries.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}
