package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships a batch of aggregated log entries somewhere (Kafka in production).
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	Service        string
	TimeInterval   time.Duration // flush interval
	CountThreshold int           // distinct entries before an early flush
	Topic          string
	Publisher      Publisher
}

type AggregatedLogEntry struct {
	Service   string                 `json:"service"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector de-duplicates warn/error entries by fingerprint and publishes
// them in batches, either on a timer or once CountThreshold distinct entries
// are pending.
type LogCollector struct {
	config  *CollectionConfig
	pending map[string]*AggregatedLogEntry
	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	if config.TimeInterval <= 0 {
		config.TimeInterval = 30 * time.Second
	}
	if config.CountThreshold <= 0 {
		config.CountThreshold = 100
	}

	c := &LogCollector{
		config:  config,
		pending: make(map[string]*AggregatedLogEntry),
		stop:    make(chan struct{}),
	}

	c.wg.Add(1)
	go c.loop()

	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := fingerprint(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.pending[key]; ok {
		entry.Count++
		entry.LastSeen = now
	} else {
		c.pending[key] = &AggregatedLogEntry{
			Service:   c.config.Service,
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if len(c.pending) >= c.config.CountThreshold {
		c.flushLocked(false)
	}
}

// Pending reports how many distinct entries are waiting to be flushed.
func (c *LogCollector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func fingerprint(level, message string, fields map[string]interface{}, caller string) string {
	data, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
		C string                 `json:"c"`
	}{level, message, fields, caller})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c *LogCollector) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.flushLocked(false)
			c.mu.Unlock()
		case <-c.stop:
			c.mu.Lock()
			c.flushLocked(true)
			c.mu.Unlock()
			return
		}
	}
}

// flushLocked must be called with mu held. The final flush on Close is
// synchronous so nothing is lost on shutdown.
func (c *LogCollector) flushLocked(wait bool) {
	if len(c.pending) == 0 || c.config.Publisher == nil {
		return
	}

	batch := make([]AggregatedLogEntry, 0, len(c.pending))
	for _, entry := range c.pending {
		batch = append(batch, *entry)
	}
	c.pending = make(map[string]*AggregatedLogEntry)

	publish := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
			// the logger itself is the caller here, so fall back to stderr
			fmt.Fprintf(os.Stderr, "log collector: publish %d entries: %v\n", len(batch), err)
		}
	}

	if wait {
		publish()
		return
	}
	go publish()
}

func (c *LogCollector) Close() {
	c.once.Do(func() {
		close(c.stop)
		c.wg.Wait()
	})
}
