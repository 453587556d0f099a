package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification hook.
type Metrics struct {
	// Eligibility decisions by outcome: "verify", "skip"
	EligibilityDecisions *prometheus.CounterVec

	// Result validation outcomes: "passed", "flagged", error codes
	ValidationOutcomes *prometheus.CounterVec

	// Outbound provider calls by operation and result
	ProviderLatency *prometheus.HistogramVec

	// Full invocation latency by resulting action
	InvocationLatency *prometheus.HistogramVec
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWith registers metrics through the given factory; tests pass a factory
// bound to a private registry.
func NewWith(f promauto.Factory) *Metrics {
	return &Metrics{
		EligibilityDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idv_eligibility_decisions_total",
			Help: "Eligibility decisions by outcome",
		}, []string{"decision"}),

		ValidationOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idv_validation_outcomes_total",
			Help: "Verification result validation outcomes",
		}, []string{"outcome"}),

		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idv_provider_request_duration_seconds",
			Help:    "Duration of verification provider requests",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "result"}),

		InvocationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idv_invocation_duration_seconds",
			Help:    "Duration of a hook invocation",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"action"}),
	}
}

// IncrementEligibility records an eligibility decision.
func (m *Metrics) IncrementEligibility(decision string) {
	if m != nil {
		m.EligibilityDecisions.WithLabelValues(decision).Inc()
	}
}

// IncrementValidation records a validation outcome.
func (m *Metrics) IncrementValidation(outcome string) {
	if m != nil {
		m.ValidationOutcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveProviderLatency records one outbound provider call.
func (m *Metrics) ObserveProviderLatency(operation, result string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(operation, result).Observe(d.Seconds())
	}
}

// ObserveInvocation records the total invocation duration.
func (m *Metrics) ObserveInvocation(action string, d time.Duration) {
	if m != nil {
		m.InvocationLatency.WithLabelValues(action).Observe(d.Seconds())
	}
}
