// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database. SQLitePath is used when DatabaseURL is empty (local mode).
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"careops.db"`

	// Redis backs the shared pause registry when set.
	RedisURL string `envconfig:"REDIS_URL"`

	// RabbitMQ bridges processed events to out-of-process consumers when set.
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`

	// Recovery sweep for event log entries stuck in pending.
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"30s"`
	SweepGracePeriod time.Duration `envconfig:"SWEEP_GRACE_PERIOD" default:"2m"`
	SweepBatchSize   int           `envconfig:"SWEEP_BATCH_SIZE" default:"50"`

	// Delivery retry/backoff.
	DeliveryMaxAttempts int           `envconfig:"DELIVERY_MAX_ATTEMPTS" default:"3"`
	DeliveryBackoffBase time.Duration `envconfig:"DELIVERY_BACKOFF_BASE" default:"1s"`
}

// Load reads configuration from the environment, consulting .env if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found).
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("careops", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment returns true when running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
