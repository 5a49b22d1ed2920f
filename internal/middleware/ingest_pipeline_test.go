package middleware

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"SmartEnergy/internal/domain/models"
	svcmetrics "SmartEnergy/internal/service/metrics"
	"SmartEnergy/internal/services/meter"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMetrics struct {
	mu   sync.Mutex
	errs []string
}

func (m *nopMetrics) RecordReading(string, float64, int) {}
func (m *nopMetrics) RecordAnomaly(string) {}
func (m *nopMetrics) RecordAlert(string, bool) {}
func (m *nopMetrics) RecordLatency(string, float64) {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, kind)
}

func (m *nopMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.errs {
		if e == kind {
			n++
		}
	}
	return n
}

type recorder struct {
	mu    sync.Mutex
	got   []float64
	fails int
}

func (r *recorder) Process(_ context.Context, rd *models.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("downstream unavailable")
	}
	r.got = append(r.got, rd.Power)
	return nil
}

func (r *recorder) powers() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.got...)
}

func TestPipelineRejectsInvalidReadings(t *testing.T) {
	m := &nopMetrics{}
	rec := &recorder{}
	p := NewIngestPipeline(rec, m, WithMaxRPS(0))

	assert.ErrorIs(t, p.Process(context.Background(), nil), meter.ErrInvalidReading)
	assert.ErrorIs(t, p.Process(context.Background(), &models.Reading{Power: -1}), meter.ErrInvalidReading)
	assert.ErrorIs(t, p.Process(context.Background(), &models.Reading{Power: math.NaN()}), meter.ErrInvalidReading)
	assert.Empty(t, rec.powers())
	assert.Equal(t, 3, m.count("pipeline_validate"))
}

func TestPipelineThrottlesPerMeter(t *testing.T) {
	m := &nopMetrics{}
	rec := &recorder{}
	p := NewIngestPipeline(rec, m, WithMaxRPS(2))
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	ctx := context.Background()
	require.NoError(t, p.Process(ctx, &models.Reading{Meter: "a", Power: 1}))
	require.NoError(t, p.Process(ctx, &models.Reading{Meter: "a", Power: 2}))
	require.NoError(t, p.Process(ctx, &models.Reading{Meter: "b", Power: 3}))

	clock = clock.Add(600 * time.Millisecond)
	require.NoError(t, p.Process(ctx, &models.Reading{Meter: "a", Power: 4}))

	assert.Equal(t, []float64{1, 3, 4}, rec.powers())
	assert.Equal(t, 1, m.count("pipeline_throttle"))
}

func TestPipelineBuffersAndRetries(t *testing.T) {
	m := &nopMetrics{}
	rec := &recorder{fails: 2}
	p := NewIngestPipeline(rec, m, WithMaxRPS(0), WithBackoff(time.Millisecond, 5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := p.Process(ctx, &models.Reading{Meter: "a", Power: 250})
	require.Error(t, err)
	assert.Equal(t, 1, p.Buffered())
	assert.Equal(t, 1.0, testutil.ToFloat64(svcmetrics.IngestBuffered))

	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool {
		return len(rec.powers()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []float64{250}, rec.powers())
	assert.GreaterOrEqual(t, m.count("pipeline_flush"), 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(svcmetrics.IngestBuffered))
}

func TestPipelineDropsWhenBufferFull(t *testing.T) {
	m := &nopMetrics{}
	p := NewIngestPipeline(&recorder{fails: 10}, m, WithMaxRPS(0), WithBufferSize(1))

	_ = p.Process(context.Background(), &models.Reading{Power: 1})
	_ = p.Process(context.Background(), &models.Reading{Power: 2})
	assert.Equal(t, 1, p.Buffered())
	assert.Equal(t, 1, m.count("pipeline_buffer_full"))
}

func TestProcFunc(t *testing.T) {
	var got float64
	p := NewIngestPipeline(ProcFunc(func(_ context.Context, r *models.Reading) error {
		got = r.Power
		return nil
	}), &nopMetrics{})
	require.NoError(t, p.Process(context.Background(), &models.Reading{Power: 42}))
	assert.Equal(t, 42.0, got)
}
