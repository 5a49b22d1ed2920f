package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("ip", 3, 1), "request %d", i)
	}
	assert.False(t, l.Allow("ip", 3, 1))
	assert.True(t, l.Allow("other", 3, 1), "keys are independent")

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("ip", 3, 1))
	assert.False(t, l.Allow("ip", 3, 1))
}

func TestLimiterSweep(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return clock }

	l.Allow("a", 1, 1)
	clock = clock.Add(time.Minute)
	l.Allow("b", 1, 1)

	assert.Equal(t, 1, l.Sweep(30*time.Second))
	assert.Len(t, l.m, 1)
}
