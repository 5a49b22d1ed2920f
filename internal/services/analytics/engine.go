package analytics

import (
	"math"

	"SmartEnergy/internal/domain/models"

	"github.com/montanaflynn/stats"
)

const (
	hoursPerMonth = 24 * 30
	// a reading counts as a spike for the eco score above this multiple of the average
	ecoSpikeFactor = 1.5
)

// Recommendation texts, in the order they are emitted.
const (
	AdviceCollecting = "Collecting data…"
	AdviceHighLoad   = "Your average load is high. Switch off idle appliances and unplug standby devices."
	AdviceSpikes     = "Frequent usage spikes detected. Stagger heavy appliances like geysers, irons and washing machines."
	AdviceHighBill   = "Your predicted bill exceeds ₹1500. Shift heavy loads to off-peak hours."
	AdviceLighting   = "Use LED lighting and 5-star rated appliances."
	AdviceCooling    = "Set your AC to 24°C or higher to save energy."
)

type Config struct {
	SubWindow     int     // readings used for every statistic
	UnitPrice     float64 // currency per kWh
	SpikeSigma    float64 // rule A: mean + SpikeSigma*stddev
	SharpRise     float64 // rule B: watts over the previous reading
	HighThreshold float64 // rule C: absolute watts

	MinAnomalySamples   int // sub-window must hold strictly more than this
	MinPredictSamples   int
	MinRecommendSamples int

	HighLoadWatts  float64
	MaxSpikes      int
	HighBillAmount float64
}

// DefaultConfig returns the thresholds the meter dashboard has always used.
func DefaultConfig() Config {
	return Config{
		SubWindow:           20,
		UnitPrice:           7,
		SpikeSigma:          2,
		SharpRise:           150,
		HighThreshold:       700,
		MinAnomalySamples:   5,
		MinPredictSamples:   5,
		MinRecommendSamples: 10,
		HighLoadWatts:       500,
		MaxSpikes:           5,
		HighBillAmount:      1500,
	}
}

// Engine computes anomaly verdicts and usage insights. Every method is a pure
// function of the window it is given; Engine holds configuration only.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine; zero or negative fields fall back to DefaultConfig.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SubWindow <= 0 {
		cfg.SubWindow = def.SubWindow
	}
	if cfg.UnitPrice <= 0 {
		cfg.UnitPrice = def.UnitPrice
	}
	if cfg.SpikeSigma <= 0 {
		cfg.SpikeSigma = def.SpikeSigma
	}
	if cfg.SharpRise <= 0 {
		cfg.SharpRise = def.SharpRise
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = def.HighThreshold
	}
	if cfg.MinAnomalySamples <= 0 {
		cfg.MinAnomalySamples = def.MinAnomalySamples
	}
	if cfg.MinPredictSamples <= 0 {
		cfg.MinPredictSamples = def.MinPredictSamples
	}
	if cfg.MinRecommendSamples <= 0 {
		cfg.MinRecommendSamples = def.MinRecommendSamples
	}
	if cfg.HighLoadWatts <= 0 {
		cfg.HighLoadWatts = def.HighLoadWatts
	}
	if cfg.MaxSpikes <= 0 {
		cfg.MaxSpikes = def.MaxSpikes
	}
	if cfg.HighBillAmount <= 0 {
		cfg.HighBillAmount = def.HighBillAmount
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) sub(window []models.Reading) []models.Reading {
	if len(window) > e.cfg.SubWindow {
		return window[len(window)-e.cfg.SubWindow:]
	}
	return window
}

// Classify judges the last reading of window against the sub-window that ends
// with it. Rules run spike, sharp rise, threshold; a later rule's reason replaces
// an earlier one.
func (e *Engine) Classify(window []models.Reading) models.Verdict {
	sub := e.sub(window)
	if len(sub) <= e.cfg.MinAnomalySamples || len(sub) < 2 {
		return models.Verdict{}
	}

	data := powers(sub)
	mean, _ := stats.Mean(data)
	std, _ := stats.StandardDeviationPopulation(data)

	power := data[len(data)-1]
	prev := data[len(data)-2]

	var v models.Verdict
	if power > mean+e.cfg.SpikeSigma*std {
		v = models.Verdict{IsAnomaly: true, Reason: models.ReasonSpike}
	}
	if power-prev > e.cfg.SharpRise {
		v = models.Verdict{IsAnomaly: true, Reason: models.ReasonSharpRise}
	}
	if power > e.cfg.HighThreshold {
		v = models.Verdict{IsAnomaly: true, Reason: models.ReasonThreshold}
	}
	return v
}

type usage struct {
	avg   float64
	units float64
	bill  float64
}

func (e *Engine) usage(sub []models.Reading) usage {
	avg, _ := stats.Mean(powers(sub))
	units := avg / 1000 * hoursPerMonth
	return usage{avg: avg, units: units, bill: units * e.cfg.UnitPrice}
}

func (e *Engine) Predict(window []models.Reading) models.Prediction {
	if len(window) < e.cfg.MinPredictSamples || len(window) == 0 {
		return models.Prediction{}
	}
	u := e.usage(e.sub(window))
	return models.Prediction{
		Sufficient:    true,
		AvgPower:      u.avg,
		UnitsPerMonth: u.units,
		PredictedBill: u.bill,
	}
}

func spikeCount(sub []models.Reading, avg float64) int {
	n := 0
	for _, r := range sub {
		if r.Power > ecoSpikeFactor*avg {
			n++
		}
	}
	return n
}

// EcoScore is floored and never below zero. It has no upper clamp.
func (e *Engine) EcoScore(window []models.Reading) models.EcoScore {
	if len(window) < e.cfg.MinPredictSamples || len(window) == 0 {
		return models.EcoScore{Score: models.DefaultEcoScore}
	}
	sub := e.sub(window)
	u := e.usage(sub)
	spikes := spikeCount(sub, u.avg)

	return models.EcoScore{
		Sufficient:    true,
		Score:         ecoScore(u, spikes),
		AvgPower:      u.avg,
		Spikes:        spikes,
		PredictedBill: u.bill,
	}
}

func ecoScore(u usage, spikes int) int {
	score := 100 - u.avg/10 - float64(spikes)*2 - u.units/50
	return int(math.Floor(math.Max(0, score)))
}

func (e *Engine) Recommend(window []models.Reading) []string {
	if len(window) < e.cfg.MinRecommendSamples || len(window) == 0 {
		return []string{AdviceCollecting}
	}
	sub := e.sub(window)
	u := e.usage(sub)
	return e.advise(u, spikeCount(sub, u.avg))
}

func (e *Engine) advise(u usage, spikes int) []string {
	out := make([]string, 0, 5)
	if u.avg > e.cfg.HighLoadWatts {
		out = append(out, AdviceHighLoad)
	}
	if spikes > e.cfg.MaxSpikes {
		out = append(out, AdviceSpikes)
	}
	if u.bill > e.cfg.HighBillAmount {
		out = append(out, AdviceHighBill)
	}
	return append(out, AdviceLighting, AdviceCooling)
}

// Summary derives every metric from one snapshot. Thresholds and sentinels
// match the individual methods.
func (e *Engine) Summary(window []models.Reading) models.DerivedMetrics {
	eco := e.EcoScore(window)
	pred := e.Predict(window)
	return models.DerivedMetrics{
		Samples:         len(window),
		AveragePower:    pred.AvgPower,
		UnitsPerMonth:   pred.UnitsPerMonth,
		PredictedBill:   pred.PredictedBill,
		EcoScore:        eco.Score,
		SpikeCount:      eco.Spikes,
		Recommendations: e.Recommend(window),
	}
}

func powers(rs []models.Reading) stats.Float64Data {
	out := make(stats.Float64Data, len(rs))
	for i, r := range rs {
		out[i] = r.Power
	}
	return out
}
