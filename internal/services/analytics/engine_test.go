package analytics

import (
	"encoding/json"
	"testing"

	"SmartEnergy/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(ps ...float64) []models.Reading {
	out := make([]models.Reading, len(ps))
	for i, p := range ps {
		out[i] = models.Reading{Time: "10:00:00 AM", Power: p}
	}
	return out
}

func repeat(p float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestClassify(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		name   string
		window []float64
		want   models.Verdict
	}{
		{
			name:   "not enough readings",
			window: concat(repeat(300, 4), []float64{900}),
		},
		{
			name:   "flat usage",
			window: repeat(300, 20),
		},
		{
			name:   "all rules fire, threshold wins",
			window: concat(repeat(300, 6), []float64{900}),
			want:   models.Verdict{IsAnomaly: true, Reason: models.ReasonThreshold},
		},
		{
			name:   "sharp rise overrides spike",
			window: concat(repeat(300, 6), []float64{600}),
			want:   models.Verdict{IsAnomaly: true, Reason: models.ReasonSharpRise},
		},
		{
			name:   "statistical spike only",
			window: concat(repeat(100, 18), []float64{200, 290}),
			want:   models.Verdict{IsAnomaly: true, Reason: models.ReasonSpike},
		},
		{
			name:   "constant load above threshold",
			window: repeat(710, 7),
			want:   models.Verdict{IsAnomaly: true, Reason: models.ReasonThreshold},
		},
		{
			name:   "threshold is exclusive",
			window: repeat(700, 7),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Classify(series(tt.window...))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyUsesOnlySubWindow(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// the early 5000s fall outside the last 20 readings and must not inflate the mean
	window := series(concat(repeat(5000, 30), repeat(100, 18), []float64{200, 290})...)
	assert.Equal(t, models.ReasonSpike, e.Classify(window).Reason)
}

func TestPredict(t *testing.T) {
	e := NewEngine(DefaultConfig())

	p := e.Predict(series(repeat(500, 4)...))
	assert.False(t, p.Sufficient)
	assert.Equal(t, map[string]interface{}{"predictedBill": float64(0)}, toMap(t, p.Body()))

	p = e.Predict(series(repeat(500, 20)...))
	require.True(t, p.Sufficient)
	assert.InDelta(t, 500, p.AvgPower, 1e-9)
	assert.InDelta(t, 360, p.UnitsPerMonth, 1e-9)
	assert.InDelta(t, 2520, p.PredictedBill, 1e-9)
	assert.Equal(t, map[string]interface{}{
		"avgPower":      "500.00",
		"unitsPerMonth": "360.00",
		"predictedBill": "2520.00",
	}, toMap(t, p.Body()))
}

func TestEcoScore(t *testing.T) {
	e := NewEngine(DefaultConfig())

	s := e.EcoScore(series(100, 200))
	assert.False(t, s.Sufficient)
	assert.Equal(t, models.DefaultEcoScore, s.Score)

	s = e.EcoScore(series(repeat(500, 20)...))
	require.True(t, s.Sufficient)
	assert.Equal(t, 42, s.Score)
	assert.Equal(t, 0, s.Spikes)

	s = e.EcoScore(series(concat(repeat(400, 14), repeat(1000, 6))...))
	assert.Equal(t, 6, s.Spikes)
	assert.InDelta(t, 580, s.AvgPower, 1e-9)
	assert.InDelta(t, 2923.2, s.PredictedBill, 1e-6)
	assert.Equal(t, 21, s.Score)

	s = e.EcoScore(series(repeat(5000, 20)...))
	assert.Equal(t, 0, s.Score, "score never goes negative")
}

func TestRecommend(t *testing.T) {
	e := NewEngine(DefaultConfig())

	assert.Equal(t, []string{AdviceCollecting}, e.Recommend(series(repeat(500, 9)...)))

	assert.Equal(t,
		[]string{AdviceHighBill, AdviceLighting, AdviceCooling},
		e.Recommend(series(repeat(500, 20)...)),
	)

	assert.Equal(t,
		[]string{AdviceHighLoad, AdviceSpikes, AdviceHighBill, AdviceLighting, AdviceCooling},
		e.Recommend(series(concat(repeat(400, 14), repeat(1000, 6))...)),
	)

	assert.Equal(t,
		[]string{AdviceLighting, AdviceCooling},
		e.Recommend(series(repeat(100, 12)...)),
	)
}

func TestSummary(t *testing.T) {
	e := NewEngine(DefaultConfig())

	m := e.Summary(series(repeat(500, 20)...))
	assert.Equal(t, 20, m.Samples)
	assert.Equal(t, 42, m.EcoScore)
	assert.InDelta(t, 2520, m.PredictedBill, 1e-9)
	assert.Len(t, m.Recommendations, 3)

	m = e.Summary(nil)
	assert.Equal(t, models.DefaultEcoScore, m.EcoScore)
	assert.Equal(t, []string{AdviceCollecting}, m.Recommendations)
}

func TestNewEngineFillsZeroConfig(t *testing.T) {
	e := NewEngine(Config{})
	cfg := e.Config()
	assert.Equal(t, 20, cfg.SubWindow)
	assert.Equal(t, 7.0, cfg.UnitPrice)
	assert.Equal(t, 700.0, cfg.HighThreshold)
	assert.Equal(t, 150.0, cfg.SharpRise)
	assert.Equal(t, 2.0, cfg.SpikeSigma)
	assert.Equal(t, 5, cfg.MinAnomalySamples)

	flat := make([]models.Reading, 7)
	for i := range flat {
		flat[i] = models.Reading{Power: 300}
	}
	assert.False(t, e.Classify(flat).IsAnomaly)
}

func toMap(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
