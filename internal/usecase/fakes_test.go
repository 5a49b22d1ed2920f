package usecase

import (
	"context"
	"sync"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
)

type fakeMetrics struct {
	mu        sync.Mutex
	readings  map[string]int
	anomalies []string
	errs      []string
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{readings: map[string]int{}} }

func (m *fakeMetrics) RecordReading(source string, _ float64, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings[source]++
}

func (m *fakeMetrics) RecordAnomaly(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies = append(m.anomalies, reason)
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, kind)
}

func (m *fakeMetrics) RecordAlert(string, bool)      {}
func (m *fakeMetrics) RecordLatency(string, float64) {}

type dispatched struct {
	reason string
	power  float64
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []dispatched
	reject bool
}

func (d *fakeDispatcher) Dispatch(reason string, power float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatched{reason, power})
	return !d.reject
}

func (d *fakeDispatcher) all() []dispatched {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatched(nil), d.calls...)
}

type fakeArchive struct {
	mu      sync.Mutex
	batches [][]models.ArchivedReading
	query   models.HistoryQuery
	err     error
}

func (a *fakeArchive) Init(context.Context) error { return nil }

func (a *fakeArchive) StoreBatch(_ context.Context, rs []models.ArchivedReading) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = append(a.batches, append([]models.ArchivedReading(nil), rs...))
	return a.err
}

func (a *fakeArchive) stored() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, b := range a.batches {
		n += len(b)
	}
	return n
}

func (a *fakeArchive) Query(_ context.Context, q models.HistoryQuery) ([]models.ArchivedReading, error) {
	a.query = q
	return []models.ArchivedReading{{Meter: q.Meter, Power: 1}}, nil
}

func (a *fakeArchive) Aggregate(_ context.Context, q models.HistoryQuery, _ drepo.Bucket) ([]models.PowerBucket, error) {
	a.query = q
	return []models.PowerBucket{{Count: 1}}, nil
}

func (a *fakeArchive) Health(context.Context) error { return nil }
func (a *fakeArchive) Close() error                 { return nil }
