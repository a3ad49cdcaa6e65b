package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAppName           = "RigLedger"
	defaultAppEnv            = "development"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultEventsExchange    = "ledger_events"
	defaultShutdownDelay     = 10 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultLockTimeout       = 2 * time.Second
	defaultTokenMaxAge       = 15 * time.Minute
	defaultMutationRateLimit = 30
	defaultReconcileSchedule = "@every 5m"
)

// Config captures application runtime configuration loaded from the environment
// and an optional .env file.
type Config struct {
	AppName           string        `mapstructure:"APP_NAME"`
	Env               string        `mapstructure:"APP_ENV"`
	Port              string        `mapstructure:"PORT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	RabbitMQURL       string        `mapstructure:"RABBITMQ_URL"`
	EventsExchange    string        `mapstructure:"EVENTS_EXCHANGE"`
	ShutdownPeriod    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	IdempotencyTTL    time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	LockTimeout       time.Duration `mapstructure:"LOCK_TIMEOUT"`
	TokenMaxAge       time.Duration `mapstructure:"TOKEN_MAX_AGE"`
	AdminPrincipals   []string      `mapstructure:"-"`
	MutationRateLimit int           `mapstructure:"MUTATION_RATE_LIMIT"`
	ReconcileSchedule string        `mapstructure:"RECONCILE_SCHEDULE"`
}

var envKeys = []string{
	"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "DATABASE_URL", "REDIS_URL", "RABBITMQ_URL",
	"EVENTS_EXCHANGE", "SHUTDOWN_TIMEOUT", "IDEMPOTENCY_TTL", "LOCK_TIMEOUT", "TOKEN_MAX_AGE",
	"ADMIN_PRINCIPALS", "MUTATION_RATE_LIMIT", "RECONCILE_SCHEDULE",
}

// Load reads configuration from the environment, falling back to a .env file
// located in path when one exists.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("EVENTS_EXCHANGE", defaultEventsExchange)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay)
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	v.SetDefault("LOCK_TIMEOUT", defaultLockTimeout)
	v.SetDefault("TOKEN_MAX_AGE", defaultTokenMaxAge)
	v.SetDefault("MUTATION_RATE_LIMIT", defaultMutationRateLimit)
	v.SetDefault("RECONCILE_SCHEDULE", defaultReconcileSchedule)

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.AdminPrincipals = splitList(v.GetString("ADMIN_PRINCIPALS"))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ShutdownPeriod <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if c.TokenMaxAge <= 0 {
		return fmt.Errorf("TOKEN_MAX_AGE must be positive")
	}
	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.Env)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.Env)
	}
	return nil
}

// IsDev reports whether the service runs in a local/development environment,
// where missing backends are replaced by in-memory implementations.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
