package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Notify    NotifyConfig
	Retention RetentionConfig
	Cache     CacheConfig
}

type DatabaseConfig struct {
	Host              string        `env:"DB_HOST" envDefault:"localhost"`
	Port              int           `env:"DB_PORT" envDefault:"5432"`
	User              string        `env:"DB_USER" envDefault:"postgres"`
	Password          string        `env:"DB_PASSWORD,required,notEmpty"`
	Name              string        `env:"DB_NAME" envDefault:"loginguard"`
	SSLMode           string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns          int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"5m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"1m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

type ServerConfig struct {
	Port                    string        `env:"PORT" envDefault:"8080"`
	Env                     string        `env:"ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	ReadTimeout             time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout            time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout             time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	TrustedProxies          []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	GuardRateLimitPerMinute int           `env:"GUARD_RATE_LIMIT_PER_MINUTE" envDefault:"600"`
}

type AuthConfig struct {
	JWTSecret           string        `env:"JWT_SECRET,required,notEmpty"`
	TokenIssuer         string        `env:"JWT_ISSUER" envDefault:"loginguard"`
	DefaultTokenTTL     time.Duration `env:"JWT_DEFAULT_TTL" envDefault:"720h"`
	TimingDelayBaseMs   int           `env:"TIMING_DELAY_BASE_MS" envDefault:"100"`
	TimingDelayRandomMs int           `env:"TIMING_DELAY_RANDOM_MS" envDefault:"50"`
}

type NotifyConfig struct {
	TelegramAPIBase string        `env:"TELEGRAM_API_BASE" envDefault:"https://api.telegram.org"`
	Timezone        string        `env:"NOTIFY_TIMEZONE" envDefault:"UTC"`
	OnFailedLogin   bool          `env:"NOTIFY_ON_FAILED_LOGIN" envDefault:"false"`
	MaxInflight     int           `env:"NOTIFY_MAX_INFLIGHT" envDefault:"32"`
	Timeout         time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	AWSRegion       string        `env:"AWS_REGION" envDefault:"us-east-1"`
	EmailFrom       string        `env:"ALERT_EMAIL_FROM"`
	EmailTo         []string      `env:"ALERT_EMAIL_TO" envSeparator:","`
}

type RetentionConfig struct {
	SweepInterval time.Duration `env:"RETENTION_SWEEP_INTERVAL" envDefault:"0"`
	BatchSize     int           `env:"RETENTION_BATCH_SIZE" envDefault:"5000"`
}

type CacheConfig struct {
	RedisURL          string        `env:"REDIS_URL"`
	SecurityConfigTTL time.Duration `env:"SECURITY_CONFIG_CACHE_TTL" envDefault:"5m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(cfg.Auth.JWTSecret, cfg.Server.Env); err != nil {
		return nil, err
	}

	if cfg.Notify.MaxInflight <= 0 {
		return nil, fmt.Errorf("NOTIFY_MAX_INFLIGHT must be positive (got %d)", cfg.Notify.MaxInflight)
	}
	if cfg.Retention.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive (got %d)", cfg.Retention.BatchSize)
	}
	if _, err := time.LoadLocation(cfg.Notify.Timezone); err != nil {
		return nil, fmt.Errorf("NOTIFY_TIMEZONE is invalid: %w", err)
	}

	return cfg, nil
}

// EmailAlertsEnabled reports whether the SES alert channel has both ends configured
func (c *NotifyConfig) EmailAlertsEnabled() bool {
	return c.EmailFrom != "" && len(c.EmailTo) > 0
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
