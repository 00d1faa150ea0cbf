package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean; every
// knob has a development default and is overridden in deployment.
type Server struct {
	Addr string

	// TokenSigningKey signs verification tokens (HS256). Must be overridden
	// outside development.
	TokenSigningKey string
	TokenIssuer     string
	TokenTTL        time.Duration
	// TokenMaxTTL caps caller-requested token lifetimes.
	TokenMaxTTL time.Duration

	CodeTTL         time.Duration
	CodeMaxAttempts int

	// DatabaseURL enables the Postgres-backed receipt/lock/audit stores when
	// set; empty means in-memory stores.
	DatabaseURL string
	// RedisURL enables the Redis-backed verification code store when set.
	RedisURL string

	// KafkaBrokers enables the best-effort audit relay when non-empty.
	KafkaBrokers []string
	AuditTopic   string
}

func FromEnv() Server {
	cfg := Server{
		Addr:            getenv("DOCGATE_ADDR", ":8080"),
		TokenSigningKey: getenv("DOCGATE_TOKEN_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenIssuer:     getenv("DOCGATE_TOKEN_ISSUER", "docgate"),
		TokenTTL:        getduration("DOCGATE_TOKEN_TTL", 15*time.Minute),
		TokenMaxTTL:     getduration("DOCGATE_TOKEN_MAX_TTL", 24*time.Hour),
		CodeTTL:         getduration("DOCGATE_CODE_TTL", 15*time.Minute),
		CodeMaxAttempts: getint("DOCGATE_CODE_MAX_ATTEMPTS", 5),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		AuditTopic:      getenv("DOCGATE_AUDIT_TOPIC", "docgate.audit"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
