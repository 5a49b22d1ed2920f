package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	readingsIngested *prometheus.CounterVec
	anomalies        *prometheus.CounterVec
	alerts           *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastPower        prometheus.Gauge
	windowSize       prometheus.Gauge
	latency          *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		readingsIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartenergy_readings_ingested_total",
				Help: "Readings recorded into the meter window by source",
			},
			[]string{"source"},
		),
		anomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartenergy_anomalies_total",
				Help: "Anomaly verdicts by final reason",
			},
			[]string{"reason"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartenergy_alerts_total",
				Help: "Alert deliveries by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartenergy_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPower: f.NewGauge(prometheus.GaugeOpts{
			Name: "smartenergy_last_power_watts",
			Help: "Power of the most recent reading",
		}),
		windowSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "smartenergy_window_readings",
			Help: "Readings currently held in the window",
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartenergy_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordReading counts an accepted reading and tracks the window length.
func (r *Recorder) RecordReading(source string, power float64, windowLen int) {
	r.readingsIngested.WithLabelValues(source).Inc()
	r.lastPower.Set(power)
	r.windowSize.Set(float64(windowLen))
}

func (r *Recorder) RecordAnomaly(reason string) {
	r.anomalies.WithLabelValues(reason).Inc()
}

// RecordAlert counts a delivery attempt per channel.
func (r *Recorder) RecordAlert(channel string, ok bool) {
	outcome := "sent"
	if !ok {
		outcome = "failed"
	}
	r.alerts.WithLabelValues(channel, outcome).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
