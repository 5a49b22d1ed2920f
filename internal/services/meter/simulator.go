package meter

import (
	"math/rand"
	"sync"
	"time"

	"SmartEnergy/internal/domain/models"
	"SmartEnergy/pkg/util"
)

// Simulator fabricates meter readings for the demo feed.
type Simulator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	now    func() time.Time
	min    int
	span   int
	layout string
	meter  string
}

type SimulatorOption func(*Simulator)

// WithRange sets power to min + [0, span).
func WithRange(min, span int) SimulatorOption {
	return func(s *Simulator) {
		if min >= 0 {
			s.min = min
		}
		if span > 0 {
			s.span = span
		}
	}
}

// WithTimeLayout sets the clock label layout.
func WithTimeLayout(layout string) SimulatorOption {
	return func(s *Simulator) {
		if layout != "" {
			s.layout = layout
		}
	}
}

// WithSource makes the output deterministic (tests).
func WithSource(src rand.Source) SimulatorOption {
	return func(s *Simulator) { s.rnd = rand.New(src) }
}

func WithClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) { s.now = now }
}

// WithMeterID sets the meter ID stamped on readings.
func WithMeterID(id string) SimulatorOption {
	return func(s *Simulator) { s.meter = id }
}

// NewSimulator creates a simulator producing 200..600 W by default.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		min:    200,
		span:   400,
		layout: util.ClockLayout,
		meter:  "simulated",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns a reading with a whole-watt power value and a wall-clock label.
func (s *Simulator) Next() models.Reading {
	s.mu.Lock()
	p := s.rnd.Intn(s.span) + s.min
	s.mu.Unlock()

	return models.Reading{
		Time:  util.ClockLabel(s.now(), s.layout),
		Power: float64(p),
		Meter: s.meter,
	}
}
