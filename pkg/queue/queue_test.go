package queue

import (
	"encoding/json"
	"testing"
	"time"

	"SmartEnergy/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelayDoubles(t *testing.T) {
	base := 10 * time.Second
	assert.Equal(t, 10*time.Second, retryDelay(base, 0))
	assert.Equal(t, 10*time.Second, retryDelay(base, 1))
	assert.Equal(t, 20*time.Second, retryDelay(base, 2))
	assert.Equal(t, 40*time.Second, retryDelay(base, 3))
	assert.Equal(t, time.Hour, retryDelay(base, 20))
}

func TestDecode(t *testing.T) {
	type alert struct {
		Reason string  `json:"reason"`
		Power  float64 `json:"power"`
	}
	got, err := Decode[alert](json.RawMessage(`{"reason":"spike","power":812}`))
	require.NoError(t, err)
	assert.Equal(t, "spike", got.Reason)
	assert.Equal(t, 812.0, got.Power)

	_, err = Decode[alert](json.RawMessage(`nope`))
	assert.Error(t, err)
}

func TestQueueKeysAndDefaults(t *testing.T) {
	q := NewRedisQueue(logger.Nop(), nil, nil, WithKeyPrefix("test:alerts"))
	assert.Equal(t, "test:alerts:messages", q.queueKey())
	assert.Equal(t, "test:alerts:retry", q.retryKey())
	assert.Equal(t, "test:alerts:dlq", q.deadLetterKey())
	assert.Equal(t, 1, q.config.Workers)
	assert.Equal(t, 10*time.Second, q.config.RetryDelay)
}
