package http

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type apiMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *apiMetrics
)

// getAPIMetrics registers once in the default registry; multiple
// servers in one process share the collectors.
func getAPIMetrics() *apiMetrics {
	metricsOnce.Do(func() {
		sharedMetrics = newAPIMetrics()
	})
	return sharedMetrics
}

func newAPIMetrics() *apiMetrics {
	return &apiMetrics{
		requests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ideas_api_requests_total",
				Help: "Requests served by the ideas API",
			},
			[]string{"route", "method", "status"},
		),
		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ideas_api_request_duration_seconds",
				Help:    "Request latency of the ideas API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

func (m *apiMetrics) observe(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
