package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		Service:      "smartenergy",
		TimeInterval: time.Hour,
		Topic:        "energy.logs",
		Publisher:    pub,
	})

	fields := map[string]interface{}{"channel": "sms"}
	c.AddLog("error", "alert delivery failed", fields, "fanout.go:50")
	c.AddLog("error", "alert delivery failed", fields, "fanout.go:50")
	c.AddLog("warn", "alert queue full", nil, "dispatcher.go:120")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	entries := pub.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "energy.logs", pub.topic)
	counts := map[string]int{}
	for _, e := range entries {
		assert.Equal(t, "smartenergy", e.Service)
		counts[e.Message] = e.Count
	}
	assert.Equal(t, map[string]int{"alert delivery failed": 2, "alert queue full": 1}, counts)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	require.Eventually(t, func() bool { return len(pub.entries()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.Pending())
}

func TestLoggerFeedsCollectorOnlyWarnAndError(t *testing.T) {
	l := Nop()
	pub := &capturePublisher{}
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})

	l.Info("started")
	l.Warn("slow request", String("path", "/usage"))
	l.Error("archive failed", Error(errors.New("timeout")), Int("count", 3))
	l.RemoveCollector()

	entries := pub.entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, "info", e.Level)
	}
}
