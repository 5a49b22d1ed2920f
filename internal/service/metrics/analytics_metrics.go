package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	InsightLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smartenergy",
			Subsystem: "insights",
			Name:      "latency_seconds",
			Help:      "Latency of analytics computations",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"insight"},
	)

	InsightSamples = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "smartenergy",
			Subsystem: "insights",
			Name:      "samples",
			Help:      "Window length seen by the latest computation",
		},
		[]string{"insight"},
	)

	IngestBuffered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smartenergy",
			Subsystem: "ingest",
			Name:      "buffered_readings",
			Help:      "Readings waiting in the ingest pipeline retry buffer",
		},
	)

	AlertQueueDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smartenergy",
			Subsystem: "alerts",
			Name:      "dropped_total",
			Help:      "Alerts dropped because the dispatch queue was full",
		},
	)
)

// Register adds the collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(InsightLatency, InsightSamples, IngestBuffered, AlertQueueDropped)
	})
}

// ObserveInsight records how long an insight took over n samples.
func ObserveInsight(insight string, n int, start time.Time) {
	InsightLatency.WithLabelValues(insight).Observe(time.Since(start).Seconds())
	InsightSamples.WithLabelValues(insight).Set(float64(n))
}
