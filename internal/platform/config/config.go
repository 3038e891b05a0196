package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "ecollect/pkg/platform/strings"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr string

	PostgresDSN string
	RedisURL    string

	VerifierBaseURL  string
	VerifierClientID string
	IssuerBaseURL    string
	StatusListURL    string

	KafkaBrokers []string
	AuditTopic   string

	AdminJWTKey string

	// Polling discipline for the credential flow.
	VerificationPollInterval time.Duration
	VerificationPollTimeout  time.Duration
	StatusPollInterval       time.Duration
	FlowSessionTTL           time.Duration

	// Per-client budget on the public endpoints.
	RateLimitPerMinute int
}

// FromEnv builds a Config from environment variables, applying defaults
// suitable for local development.
func FromEnv() Config {
	cfg := Config{
		Addr:             envOr("ECOLLECT_ADDR", ":8080"),
		PostgresDSN:      os.Getenv("ECOLLECT_POSTGRES_DSN"),
		RedisURL:         os.Getenv("ECOLLECT_REDIS_URL"),
		VerifierBaseURL:  envOr("ECOLLECT_VERIFIER_URL", "http://localhost:8001"),
		VerifierClientID: os.Getenv("ECOLLECT_VERIFIER_CLIENT_ID"),
		IssuerBaseURL:    envOr("ECOLLECT_ISSUER_URL", "http://localhost:8002"),
		StatusListURL:    os.Getenv("ECOLLECT_STATUS_LIST_URL"),
		AuditTopic:       envOr("ECOLLECT_AUDIT_TOPIC", "ecollect.audit"),
		AdminJWTKey:      envOr("ECOLLECT_ADMIN_JWT_KEY", "dev-secret-key-change-in-production"),

		VerificationPollInterval: 2 * time.Second,
		VerificationPollTimeout:  5 * time.Minute,
		StatusPollInterval:       10 * time.Second,
		FlowSessionTTL:           time.Hour,

		RateLimitPerMinute: 120,
	}
	if raw := os.Getenv("ECOLLECT_RATE_LIMIT_PER_MINUTE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.RateLimitPerMinute = n
		}
	}
	if brokers := os.Getenv("ECOLLECT_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = platformstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
