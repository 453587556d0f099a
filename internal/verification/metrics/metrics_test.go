package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWith(promauto.With(prometheus.NewRegistry()))

	m.IncrementEligibility("redirect")
	m.IncrementEligibility("redirect")
	m.IncrementValidation("flagged")
	m.ObserveProviderLatency("fetch_result", "ok", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EligibilityDecisions.WithLabelValues("redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationOutcomes.WithLabelValues("flagged")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProviderLatency))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementEligibility("skip")
		m.IncrementValidation("passed")
		m.ObserveProviderLatency("exchange_token", "ok", time.Second)
		m.ObserveInvocation("allow", time.Second)
	})
}
