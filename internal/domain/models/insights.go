package models

import "github.com/shopspring/decimal"

// Verdict reasons. When several rules fire the last one evaluated wins.
const (
	ReasonSpike     = "Sudden spike detected"
	ReasonSharpRise = "Sharp increase in usage"
	ReasonThreshold = "High usage threshold exceeded"
)

// Verdict is the anomaly classification of the newest reading. Reason is
// empty when IsAnomaly is false.
type Verdict struct {
	IsAnomaly bool   `json:"anomaly"`
	Reason    string `json:"reason"`
}

type Prediction struct {
	Sufficient    bool
	AvgPower      float64
	UnitsPerMonth float64
	PredictedBill float64
}

type predictionBody struct {
	AvgPower      string `json:"avgPower"`
	UnitsPerMonth string `json:"unitsPerMonth"`
	PredictedBill string `json:"predictedBill"`
}

type insufficientPrediction struct {
	PredictedBill int `json:"predictedBill"`
}

// Body returns the JSON shape served by /predict: two-decimal strings, or
// {"predictedBill":0} when there are too few readings.
func (p Prediction) Body() interface{} {
	if !p.Sufficient {
		return insufficientPrediction{}
	}
	return predictionBody{
		AvgPower:      fixed2(p.AvgPower),
		UnitsPerMonth: fixed2(p.UnitsPerMonth),
		PredictedBill: fixed2(p.PredictedBill),
	}
}

// DefaultEcoScore is reported until enough readings exist.
const DefaultEcoScore = 50

type EcoScore struct {
	Sufficient    bool
	Score         int
	AvgPower      float64
	Spikes        int
	PredictedBill float64
}

type ecoScoreBody struct {
	EcoScore      int     `json:"ecoScore"`
	AvgPower      float64 `json:"avgPower"`
	Spikes        int     `json:"spikes"`
	PredictedBill float64 `json:"predictedBill"`
}

type insufficientEcoScore struct {
	EcoScore int `json:"ecoScore"`
}

// Body returns the JSON shape served by /ecoscore.
func (e EcoScore) Body() interface{} {
	if !e.Sufficient {
		return insufficientEcoScore{EcoScore: e.Score}
	}
	return ecoScoreBody{
		EcoScore:      e.Score,
		AvgPower:      e.AvgPower,
		Spikes:        e.Spikes,
		PredictedBill: e.PredictedBill,
	}
}

type Recommendations struct {
	Recommendations []string `json:"recommendations"`
}

// DerivedMetrics bundles everything computed from one window snapshot.
type DerivedMetrics struct {
	Samples         int      `json:"samples"`
	AveragePower    float64  `json:"averagePower"`
	UnitsPerMonth   float64  `json:"unitsPerMonth"`
	PredictedBill   float64  `json:"predictedBill"`
	EcoScore        int      `json:"ecoScore"`
	SpikeCount      int      `json:"spikeCount"`
	Recommendations []string `json:"recommendations"`
}

func fixed2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
