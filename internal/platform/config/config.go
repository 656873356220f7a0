package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	pkgstrings "custodian/pkg/platform/strings"
)

// Config holds all application configuration. Backends are optional: when a
// URL is empty the corresponding in-memory implementation is used, which
// keeps local development and tests free of external services.
type Config struct {
	HTTPAddr string `env:"CUSTODIAN_HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"CUSTODIAN_LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	JWTSigningKey string `env:"JWT_SIGNING_KEY"`

	// Retry bounds for transient store failures inside the coordinator.
	RetryInitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL" envDefault:"50ms"`
	RetryMaxInterval     time.Duration `env:"RETRY_MAX_INTERVAL" envDefault:"2s"`
	RetryMaxElapsed      time.Duration `env:"RETRY_MAX_ELAPSED" envDefault:"10s"`
	StoreCallTimeout     time.Duration `env:"STORE_CALL_TIMEOUT" envDefault:"5s"`

	// Reconciliation scanner. The grace period must exceed the worst-case
	// gap between a blob write and its metadata write under retry, so it is
	// kept well above RetryMaxElapsed.
	ScanInterval      time.Duration `env:"SCAN_INTERVAL" envDefault:"5m"`
	OrphanGracePeriod time.Duration `env:"ORPHAN_GRACE_PERIOD" envDefault:"15m"`

	// Optional incident publishing to Kafka.
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	IncidentTopic string   `env:"KAFKA_INCIDENT_TOPIC" envDefault:"custodian.incidents"`
}

// Load reads configuration from the environment. A .env file is optional and
// only used for local development.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.KafkaBrokers = pkgstrings.DedupeAndTrim(cfg.KafkaBrokers)
	return &cfg, nil
}
