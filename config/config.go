package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Billing  BillingConfig
	Stripe   StripeConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Redis    RedisConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	RunMigrations   bool
}

// BillingConfig controls the scheduled charge and subscription-sync runs.
type BillingConfig struct {
	ChargeSchedule   string // cron spec for the daily charge run
	SubSyncSchedule  string // cron spec for the subscription pause/resume run
	WorkerCount      int    // bounded member fan-out per run
	RateLimit        float64
	ProcessorTimeout time.Duration // per processor call
	RunBudget        time.Duration // wall-clock budget per run; 0 = unlimited
	Currency         string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type RedisConfig struct {
	URL      string
	EventTTL time.Duration // how long processed webhook event ids are remembered
}

type AdminConfig struct {
	// bcrypt hash of the token accepted on the manual trigger endpoints.
	// Empty disables the admin endpoints.
	TokenHash string
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			RunMigrations:   getEnvBool("DB_RUN_MIGRATIONS", true),
		},
		Billing: BillingConfig{
			ChargeSchedule:   getEnv("BILLING_CHARGE_SCHEDULE", "0 6 * * *"),
			SubSyncSchedule:  getEnv("BILLING_SUBSCRIPTION_SYNC_SCHEDULE", "30 6 * * *"),
			WorkerCount:      getEnvInt("BILLING_WORKER_COUNT", 8),
			RateLimit:        getEnvFloat("BILLING_RATE_LIMIT", 25.0),
			ProcessorTimeout: getEnvDuration("BILLING_PROCESSOR_TIMEOUT", 20*time.Second),
			RunBudget:        getEnvDuration("BILLING_RUN_BUDGET", 0),
			Currency:         getEnv("BILLING_CURRENCY", "usd"),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			EventTTL: getEnvDuration("REDIS_EVENT_TTL", 72*time.Hour),
		},
		Admin: AdminConfig{
			TokenHash: getEnv("ADMIN_TOKEN_HASH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Billing.WorkerCount < 1 {
		return fmt.Errorf("billing worker count must be at least 1")
	}
	if c.Billing.RateLimit <= 0 {
		return fmt.Errorf("billing rate limit must be positive")
	}
	if c.Billing.Currency == "" {
		return fmt.Errorf("billing currency must be set")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
