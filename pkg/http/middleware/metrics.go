package middleware

import (
	"strconv"
	"sync"
	"time"

	applogger "SmartEnergy/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"route", "method", "class"},
	)

	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		},
		[]string{"route", "method"},
	)

	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 200, 500, 1_000, 2_000, 5_000, 10_000, 50_000},
		},
		[]string{"route", "method", "class"},
	)

	regOnce sync.Once
)

// Metrics records request metrics labelled by the registered route template
// (c.Path()) to keep cardinality low, and logs 5xx and slow requests.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	regOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight, httpResponseSize)
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			httpInFlight.WithLabelValues(route, method).Inc()
			defer httpInFlight.WithLabelValues(route, method).Dec()
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}

			res := c.Response()
			status := strconv.Itoa(res.Status)
			class := statusClass(res.Status)
			dur := time.Since(start)

			httpRequestsTotal.WithLabelValues(route, method, status).Inc()
			httpRequestDuration.WithLabelValues(route, method, class).Observe(dur.Seconds())
			httpResponseSize.WithLabelValues(route, method, class).Observe(float64(res.Size))

			fields := []applogger.Field{
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.String("status", status),
				applogger.Duration("duration_ms", dur),
				applogger.Int64("bytes", res.Size),
			}
			switch {
			case res.Status >= 500:
				if err != nil {
					fields = append(fields, applogger.Error(err))
				}
				l.Error("http request failed", fields...)
			case slowThreshold > 0 && dur >= slowThreshold:
				l.Warn("http request slow", fields...)
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
