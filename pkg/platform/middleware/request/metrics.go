package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP instruments. Labels use the chi route pattern, so
// person IDs never become label values.
type Metrics struct {
	latency  *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer registers the instruments with reg; tests and the
// e2e server pass a private registry.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assura_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),
	}
}

// Observe records one finished request. A nil receiver is a no-op.
func (m *Metrics) Observe(method, route string, status int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(route).Observe(durationSeconds)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
