package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is an in-process keyed token bucket. Buckets start full.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*bucket
	now func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{m: make(map[string]*bucket), now: time.Now}
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, last: now}
		l.m[key] = b
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * refillPerSec
		if b.tokens > capacity {
			b.tokens = capacity
		}
		b.last = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Sweep drops buckets idle for longer than maxIdle and returns how many were removed.
func (l *Limiter) Sweep(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, b := range l.m {
		if b.last.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}
