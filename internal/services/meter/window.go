package meter

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"SmartEnergy/internal/domain/models"
)

// DefaultCapacity is the number of readings kept in memory.
const DefaultCapacity = 200

var ErrInvalidReading = errors.New("invalid reading")

// Window is a bounded FIFO of readings backed by a ring buffer. The oldest
// reading is evicted once capacity is reached. Safe for concurrent use.
type Window struct {
	mu    sync.RWMutex
	buf   []models.Reading
	start int // index of the oldest reading
	size  int
}

// NewWindow creates a window holding at most capacity readings.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{buf: make([]models.Reading, capacity)}
}

// Validate rejects readings whose power is not a finite non-negative number.
func Validate(r models.Reading) error {
	if math.IsNaN(r.Power) || math.IsInf(r.Power, 0) || r.Power < 0 {
		return fmt.Errorf("%w: power %v", ErrInvalidReading, r.Power)
	}
	return nil
}

// Record appends r and returns it. An invalid reading leaves the window unchanged.
func (w *Window) Record(r models.Reading) (models.Reading, error) {
	if err := Validate(r); err != nil {
		return models.Reading{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.push(r)
	return r, nil
}

// Recent returns a copy of the last n readings in insertion order.
func (w *Window) Recent(n int) []models.Reading {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tail(n)
}

// Snapshot returns a copy of every reading currently held.
func (w *Window) Snapshot() []models.Reading {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tail(w.size)
}

// RecordAndRecent records r and returns the last n readings including r,
// under one lock so concurrent writers cannot interleave.
func (w *Window) RecordAndRecent(r models.Reading, n int) (models.Reading, []models.Reading, error) {
	if err := Validate(r); err != nil {
		return models.Reading{}, nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.push(r)
	return r, w.tail(n), nil
}

// push must be called with mu held.
func (w *Window) push(r models.Reading) {
	c := len(w.buf)
	if w.size < c {
		w.buf[(w.start+w.size)%c] = r
		w.size++
	} else {
		w.buf[w.start] = r
		w.start = (w.start + 1) % c
	}
}

func (w *Window) tail(n int) []models.Reading {
	if n > w.size {
		n = w.size
	}
	if n <= 0 {
		return []models.Reading{}
	}

	out := make([]models.Reading, n)
	c := len(w.buf)
	first := w.start + w.size - n
	for i := 0; i < n; i++ {
		out[i] = w.buf[(first+i)%c]
	}
	return out
}

func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

func (w *Window) Cap() int {
	return len(w.buf)
}
