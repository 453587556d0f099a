package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idvgate/internal/verification/models"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name         string
		trigger      string
		interval     string
		want         models.PolicyConfig
		wantWarnings int
	}{
		{name: "unset is the safe default", want: models.PolicyConfig{}},
		{name: "valid values", trigger: "true", interval: "30", want: models.PolicyConfig{TriggerOnFirstLogin: true, RecheckIntervalDays: 30}},
		{name: "every login", trigger: "false", interval: "-1", want: models.PolicyConfig{RecheckIntervalDays: -1}},
		{name: "garbage boolean falls back to false", trigger: "yes please", interval: "7", want: models.PolicyConfig{RecheckIntervalDays: 7}, wantWarnings: 1},
		{name: "garbage interval falls back to never", trigger: "1", interval: "weekly", want: models.PolicyConfig{TriggerOnFirstLogin: true}, wantWarnings: 1},
		{name: "interval below -1 falls back to never", interval: "-5", want: models.PolicyConfig{}, wantWarnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warnings []string
			got := ParsePolicy(tt.trigger, tt.interval, &warnings)
			assert.Equal(t, tt.want, got)
			assert.Len(t, warnings, tt.wantWarnings)
		})
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"IDV_ADDR", "IDV_API_BASE_URL", "IDV_HTTP_TIMEOUT", "IDV_SESSION_TTL", "KAFKA_BROKERS", "KAFKA_AUDIT_TOPIC", "IDV_DEBUG"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultAPIBaseURL, cfg.Provider.APIBaseURL)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Provider.HTTPTimeout)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, DefaultAuditTopic, cfg.Audit.Topic)
	assert.Nil(t, cfg.Audit.Brokers)
	assert.False(t, cfg.Debug)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("IDV_ADDR", ":9090")
	t.Setenv("IDV_DEBUG", "true")
	t.Setenv("IDV_API_BASE_URL", "https://provider.example.test/")
	t.Setenv("IDV_HTTP_TIMEOUT", "2s")
	t.Setenv("IDV_SESSION_TTL", "nope")
	t.Setenv("IDV_TRIGGER_ON_FIRST_LOGIN", "true")
	t.Setenv("IDV_RECHECK_INTERVAL_DAYS", "90")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "https://provider.example.test", cfg.Provider.APIBaseURL)
	assert.Equal(t, 2*time.Second, cfg.Provider.HTTPTimeout)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, models.PolicyConfig{TriggerOnFirstLogin: true, RecheckIntervalDays: 90}, cfg.Policy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.Brokers)
	assert.Len(t, cfg.Warnings, 1)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("IDV_PUBLIC_KEY=pk_from_file\n"), 0o600))
	t.Setenv("IDV_PUBLIC_KEY", "")
	require.NoError(t, os.Unsetenv("IDV_PUBLIC_KEY"))

	cfg := Load(path)

	assert.Equal(t, "pk_from_file", cfg.Provider.PublicKey)
	require.NoError(t, os.Unsetenv("IDV_PUBLIC_KEY"))
}
