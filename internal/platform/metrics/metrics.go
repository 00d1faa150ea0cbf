package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ReceiptsIssued       prometheus.Counter
	VerificationAttempts *prometheus.CounterVec
	DocumentsUnlocked    prometheus.Counter
	CodeLockouts         prometheus.Counter
	CanonicalizeDuration prometheus.Histogram
}

// New creates all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry so suites never collide on the process-global one.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReceiptsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "docgate_receipts_issued_total",
			Help: "Total number of receipts issued over canonicalized fact sets",
		}),
		VerificationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docgate_verification_attempts_total",
			Help: "Verification attempts by method and outcome",
		}, []string{"method", "outcome"}),
		DocumentsUnlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "docgate_documents_unlocked_total",
			Help: "Lock state transitions from locked to unlocked",
		}),
		CodeLockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "docgate_code_lockouts_total",
			Help: "Verification codes locked out after exhausting the attempt budget",
		}),
		CanonicalizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docgate_canonicalize_duration_ms",
			Help:    "Latency of fact set canonicalization in milliseconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// RecordAttempt increments the verification attempt counter for one call.
func (m *Metrics) RecordAttempt(method, outcome string) {
	if m == nil {
		return
	}
	m.VerificationAttempts.WithLabelValues(method, outcome).Inc()
}
