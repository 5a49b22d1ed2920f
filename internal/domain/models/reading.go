package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineVoltage is the nominal supply voltage reported with every live reading.
const LineVoltage = 230

// Reading is one meter sample. Immutable once recorded.
type Reading struct {
	Time  string  `json:"time"`
	Power float64 `json:"power"`
	Meter string  `json:"meter,omitempty"`
}

// Reading sources, used as metric labels and archive tags.
const (
	SourceLive   = "live"
	SourceUsage  = "usage"
	SourceKafka  = "kafka"
	SourceStream = "stream"
	SourceDemo   = "demo"
)

// ReadingRequest is the body of POST /usage and of readings arriving over Kafka or the meter gateway.
type ReadingRequest struct {
	Time  string   `json:"time"`
	Power *float64 `json:"power" validate:"required"`
	Meter string   `json:"meter" default:"default" validate:"max=64"`
}

func (r *ReadingRequest) Reading() Reading {
	var p float64
	if r.Power != nil {
		p = *r.Power
	}
	return Reading{Time: r.Time, Power: p, Meter: r.Meter}
}

// LiveReading is the response for a freshly recorded reading.
type LiveReading struct {
	Time    string  `json:"time"`
	Power   float64 `json:"power"`
	Voltage int     `json:"voltage"`
	Current string  `json:"current"`
	Anomaly bool    `json:"anomaly"`
	Reason  string  `json:"reason"`
}

// NewLiveReading builds the dashboard payload for r.
func NewLiveReading(r Reading, v Verdict) LiveReading {
	return LiveReading{
		Time:    r.Time,
		Power:   r.Power,
		Voltage: LineVoltage,
		Current: decimal.NewFromFloat(r.Power).Div(decimal.NewFromInt(LineVoltage)).StringFixed(2),
		Anomaly: v.IsAnomaly,
		Reason:  v.Reason,
	}
}

// ArchivedReading is a reading as stored in the long-term archive.
type ArchivedReading struct {
	RecordedAt time.Time `json:"recordedAt"`
	Meter      string    `json:"meter"`
	Source     string    `json:"source"`
	Label      string    `json:"time"`
	Power      float64   `json:"power"`
	Anomaly    bool      `json:"anomaly"`
	Reason     string    `json:"reason,omitempty"`
}

// HistoryQuery selects archived readings.
type HistoryQuery struct {
	Meter string
	From  time.Time
	To    time.Time
	Limit int
}

// PowerBucket is an aggregate of archived readings over one interval.
type PowerBucket struct {
	Start    time.Time `json:"start"`
	AvgPower float64   `json:"avgPower"`
	MaxPower float64   `json:"maxPower"`
	Count    uint64    `json:"count"`
}

type RecentRequest struct {
	N int `query:"n" default:"20" validate:"min=1,max=1000"`
}

type RecentResponse struct {
	Readings []Reading `json:"readings"`
}

// HistoryRequest selects archived readings; from/to accept RFC3339 or unix seconds.
type HistoryRequest struct {
	Meter  string `query:"meter" validate:"max=64"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"500" validate:"min=1,max=5000"`
	Bucket string `query:"bucket" validate:"omitempty,oneof=1m 5m 1h"`
}
