package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idvgate/internal/platform/logger"
	platformmetrics "idvgate/internal/platform/metrics"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestEligibilityCommand(t *testing.T) {
	t.Setenv("IDV_TRIGGER_ON_FIRST_LOGIN", "true")
	t.Setenv("IDV_RECHECK_INTERVAL_DAYS", "30")

	t.Run("first login", func(t *testing.T) {
		out := runCLI(t, "eligibility", "--logins", "1")
		assert.Contains(t, out, "verify: true")
	})

	t.Run("recent check", func(t *testing.T) {
		out := runCLI(t, "eligibility", "--logins", "5", "--last-check", "2999-01-01T00:00:00Z")
		assert.Contains(t, out, "verify: false")
	})
}

func TestEligibilityCommand_ReportsFallbacks(t *testing.T) {
	t.Setenv("IDV_RECHECK_INTERVAL_DAYS", "often")

	out := runCLI(t, "eligibility", "--logins", "3")

	assert.Contains(t, out, "warning: IDV_RECHECK_INTERVAL_DAYS")
	assert.Contains(t, out, "recheck_interval_days=0")
}

func TestRouter_Healthz(t *testing.T) {
	m := platformmetrics.NewWith(promauto.With(prometheus.NewRegistry()))
	r := newRouter(logger.NewWithWriter(&bytes.Buffer{}, false), m, &infra{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
