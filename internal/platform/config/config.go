// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"idvgate/internal/verification/models"
	strutil "idvgate/pkg/platform/strings"
)

// Server captures HTTP and hook level configuration.
type Server struct {
	Addr       string
	Debug      bool
	HookSecret string
	AdminToken string
	Policy     models.PolicyConfig
	Provider   Provider
	SessionTTL time.Duration
	Redis      RedisConfig
	Database   DatabaseConfig
	Audit      AuditConfig

	// Warnings lists values that failed to parse and fell back to defaults.
	Warnings []string
}

// Provider holds the verification provider's credentials and endpoints.
type Provider struct {
	PublicKey    string
	PrivateKey   string
	APIBaseURL   string
	FlowURL      string
	DashboardURL string
	HTTPTimeout  time.Duration
}

// RedisConfig configures the pending-state store. Empty URL means in-memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the profile store. Empty URL means in-memory.
type DatabaseConfig struct {
	URL string
}

// AuditConfig configures the audit stream. No brokers means in-memory.
type AuditConfig struct {
	Brokers []string
	Topic   string
}

const (
	DefaultAddr         = ":8080"
	DefaultAPIBaseURL   = "https://api.berbix.com"
	DefaultFlowURL      = "https://verify.berbix.com/v0/flow"
	DefaultDashboardURL = "https://dashboard.berbix.com/transaction"
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultSessionTTL   = 20 * time.Minute
	DefaultAuditTopic   = "idv.audit"
)

// Load reads optional .env files and then the environment.
func Load(envFiles ...string) Server {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	r := reader{}
	cfg := Server{
		Addr:       r.str("IDV_ADDR", DefaultAddr),
		Debug:      r.boolean("IDV_DEBUG"),
		HookSecret: r.str("IDV_HOOK_SECRET", ""),
		AdminToken: r.str("IDV_ADMIN_TOKEN", ""),
		Policy:     ParsePolicy(os.Getenv("IDV_TRIGGER_ON_FIRST_LOGIN"), os.Getenv("IDV_RECHECK_INTERVAL_DAYS"), &r.warnings),
		Provider: Provider{
			PublicKey:    r.str("IDV_PUBLIC_KEY", ""),
			PrivateKey:   r.str("IDV_PRIVATE_KEY", ""),
			APIBaseURL:   strings.TrimRight(r.str("IDV_API_BASE_URL", DefaultAPIBaseURL), "/"),
			FlowURL:      r.str("IDV_FLOW_URL", DefaultFlowURL),
			DashboardURL: r.str("IDV_DASHBOARD_URL", DefaultDashboardURL),
			HTTPTimeout:  r.duration("IDV_HTTP_TIMEOUT", DefaultHTTPTimeout),
		},
		SessionTTL: r.duration("IDV_SESSION_TTL", DefaultSessionTTL),
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Database: DatabaseConfig{URL: r.str("DATABASE_URL", "")},
		Audit: AuditConfig{
			Brokers: r.csv("KAFKA_BROKERS"),
			Topic:   r.str("KAFKA_AUDIT_TOPIC", DefaultAuditTopic),
		},
	}
	cfg.Warnings = r.warnings
	return cfg
}

// ParsePolicy converts the raw policy strings once. Unparseable values fall
// back to the safe setting (no first-login trigger, never recheck) and are
// reported through warnings.
func ParsePolicy(triggerOnFirstLogin, recheckIntervalDays string, warnings *[]string) models.PolicyConfig {
	cfg := models.PolicyConfig{}

	if v := strings.TrimSpace(triggerOnFirstLogin); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			warn(warnings, "IDV_TRIGGER_ON_FIRST_LOGIN=%q is not a boolean; using false", v)
		} else {
			cfg.TriggerOnFirstLogin = b
		}
	}

	if v := strings.TrimSpace(recheckIntervalDays); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			warn(warnings, "IDV_RECHECK_INTERVAL_DAYS=%q is not an integer; using 0 (never)", v)
		case n < models.RecheckEveryLogin:
			warn(warnings, "IDV_RECHECK_INTERVAL_DAYS=%d is below -1; using 0 (never)", n)
		default:
			cfg.RecheckIntervalDays = n
		}
	}

	return cfg
}

func warn(warnings *[]string, format string, args ...any) {
	if warnings != nil {
		*warnings = append(*warnings, fmt.Sprintf(format, args...))
	}
}

type reader struct {
	warnings []string
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) boolean(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		warn(&r.warnings, "%s=%q is not a boolean; using false", key, v)
		return false
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		warn(&r.warnings, "%s=%q is not a positive duration; using %s", key, v, def)
		return def
	}
	return d
}

func (r *reader) csv(key string) []string {
	return strutil.SplitList(os.Getenv(key))
}
