package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the quoting client.
// It supports environment-based initialization, with sensible defaults.
type Config struct {
	ServiceName string // e.g. "ilp-quote"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.

	NATSURL       string // e.g. nats://localhost:4222
	SubjectPrefix string // NATS subject prefix for ILP accounts

	LedgerPrefix string   // this ledger's ILP address prefix
	Account      string   // this client's own ILP address
	Connectors   []string // default connector accounts

	QuoteTimeout time.Duration // per-connector quote timeout
	MetricsPort  int           // prometheus /metrics listen port, 0 disables
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	return &Config{
		ServiceName:   GetEnv("SERVICE_NAME", "ilp-quote"),
		Env:           GetEnv("ENV", "dev"),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
		NATSURL:       GetEnv("NATS_URL", "nats://localhost:4222"),
		SubjectPrefix: GetEnv("SUBJECT_PREFIX", "ilp.msg."),
		LedgerPrefix:  GetEnv("LEDGER_PREFIX", "example.ledger."),
		Account:       GetEnv("ILP_ACCOUNT", "example.ledger.client"),
		Connectors:    GetEnvList("ILP_CONNECTORS", nil),
		QuoteTimeout:  GetEnvDuration("QUOTE_TIMEOUT", 5*time.Second),
		MetricsPort:   GetEnvInt("METRICS_PORT", 9100),
	}
}
