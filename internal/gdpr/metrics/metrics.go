package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for GDPR operations. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	ConsentsGranted   *prometheus.CounterVec
	ConsentsRevoked   *prometheus.CounterVec
	ConsentDuplicates *prometheus.CounterVec
	Exports           prometheus.Counter
	Anonymizations    *prometheus.CounterVec
	EligibilityChecks *prometheus.CounterVec
	OperationLatency  *prometheus.HistogramVec
	ShardLockWait     prometheus.Histogram
}

// New registers the collectors with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConsentsGranted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_gdpr_consents_granted_total",
			Help: "Total number of consents granted, labeled by data category",
		}, []string{"category"}),
		ConsentsRevoked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_gdpr_consents_revoked_total",
			Help: "Total number of consents revoked, labeled by data category",
		}, []string{"category"}),
		ConsentDuplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_gdpr_consent_duplicates_total",
			Help: "Total number of grants ignored because an active consent already existed",
		}, []string{"category"}),
		Exports: factory.NewCounter(prometheus.CounterOpts{
			Name: "assura_gdpr_exports_total",
			Help: "Total number of personal data exports",
		}),
		Anonymizations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_gdpr_anonymizations_total",
			Help: "Total number of anonymization attempts, labeled by outcome",
		}, []string{"outcome"}),
		EligibilityChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assura_gdpr_eligibility_checks_total",
			Help: "Total number of anonymization eligibility checks, labeled by result",
		}, []string{"eligible"}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assura_gdpr_operation_duration_seconds",
			Help:    "Latency of GDPR orchestrator operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		ShardLockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "assura_gdpr_shard_lock_wait_seconds",
			Help:    "Time spent waiting for the in-memory per-person transaction lock",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncConsentGranted(category string) {
	if m != nil {
		m.ConsentsGranted.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncConsentRevoked(category string) {
	if m != nil {
		m.ConsentsRevoked.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncConsentDuplicate(category string) {
	if m != nil {
		m.ConsentDuplicates.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncExport() {
	if m != nil {
		m.Exports.Inc()
	}
}

// IncAnonymization records an attempt; outcome is "anonymized", "not_eligible" or "error".
func (m *Metrics) IncAnonymization(outcome string) {
	if m != nil {
		m.Anonymizations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncEligibilityCheck(eligible bool) {
	if m == nil {
		return
	}
	label := "false"
	if eligible {
		label = "true"
	}
	m.EligibilityChecks.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveOperation(operation string, seconds float64) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(seconds)
	}
}

func (m *Metrics) ObserveShardLockWait(seconds float64) {
	if m != nil {
		m.ShardLockWait.Observe(seconds)
	}
}
