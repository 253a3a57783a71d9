package encryption

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the seal and open passes.
type Metrics struct {
	FieldsSealed    *prometheus.CounterVec
	DecryptFailures *prometheus.CounterVec
	SealLatency     *prometheus.HistogramVec
	SealFailures    *prometheus.CounterVec
}

// NewMetrics registers the encryption collectors with reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		FieldsSealed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_encryption_fields_sealed_total",
			Help: "Total number of field values encrypted before a write, labeled by entity kind",
		}, []string{"kind"}),
		DecryptFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_encryption_decrypt_failures_total",
			Help: "Total number of field values left raw because decryption failed",
		}, []string{"kind", "field"}),
		SealLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assura_encryption_seal_duration_seconds",
			Help:    "Latency of the encrypt-before-write pass in seconds",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"kind"}),
		SealFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_encryption_seal_failures_total",
			Help: "Total number of writes aborted because a field could not be encrypted",
		}, []string{"kind"}),
	}
}

func (m *Metrics) addFieldsSealed(kind Kind, n int) {
	if m == nil || n == 0 {
		return
	}
	m.FieldsSealed.WithLabelValues(string(kind)).Add(float64(n))
}

func (m *Metrics) incDecryptFailure(kind Kind, field string) {
	if m == nil {
		return
	}
	m.DecryptFailures.WithLabelValues(string(kind), field).Inc()
}

func (m *Metrics) incSealFailure(kind Kind) {
	if m == nil {
		return
	}
	m.SealFailures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observeSeal(kind Kind, seconds float64) {
	if m == nil {
		return
	}
	m.SealLatency.WithLabelValues(string(kind)).Observe(seconds)
}
