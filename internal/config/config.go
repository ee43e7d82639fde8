package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	PMS          PMSConfig
	Dispatch     DispatchConfig
	Clearing     ClearingConfig
	Events       EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	Timezone              string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis
// and falls back to in-process locks and session tracking.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// Notification transports.
const (
	TransportLog     = "log"
	TransportWebhook = "webhook"
	TransportRedis   = "redis"
)

// NotificationConfig selects how staff notifications leave the process.
type NotificationConfig struct {
	Transport    string
	WebhookURL   string
	RedisChannel string
	TimeoutMS    int
}

// PMSConfig points at the property management system's sync endpoint.
type PMSConfig struct {
	BaseURL   string
	APIKey    string
	TimeoutMS int
}

// DispatchConfig tunes the stale ticket dispatcher.
type DispatchConfig struct {
	Enabled            bool
	IntervalSeconds    int
	StalenessMinutes   int
	LockTTLSeconds     int
	SessionIdleMinutes int
}

// ClearingConfig schedules the daily consumption clearing run.
type ClearingConfig struct {
	Enabled bool
	Hour    int
}

// EventsConfig sizes the asynchronous event dispatcher.
type EventsConfig struct {
	Workers   int
	QueueSize int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "hotel-ops"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			Timezone:              getEnv("APP_TIMEZONE", "UTC"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnv("APP_ENV", "development") == "development",
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*12),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			Transport:    strings.ToLower(getEnv("NOTIFY_TRANSPORT", TransportLog)),
			WebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", "hotel-ops:notifications"),
			TimeoutMS:    getEnvAsInt("NOTIFY_TIMEOUT_MS", 3000),
		},
		PMS: PMSConfig{
			BaseURL:   getEnv("PMS_BASE_URL", ""),
			APIKey:    os.Getenv("PMS_API_KEY"),
			TimeoutMS: getEnvAsInt("PMS_TIMEOUT_MS", 5000),
		},
		Dispatch: DispatchConfig{
			Enabled:            getEnvAsBool("DISPATCH_ENABLED", true),
			IntervalSeconds:    getEnvAsInt("DISPATCH_INTERVAL_SECONDS", 300),
			StalenessMinutes:   getEnvAsInt("DISPATCH_STALENESS_MINUTES", 240),
			LockTTLSeconds:     getEnvAsInt("DISPATCH_LOCK_TTL_SECONDS", 60),
			SessionIdleMinutes: getEnvAsInt("DISPATCH_SESSION_IDLE_MINUTES", 60*12),
		},
		Clearing: ClearingConfig{
			Enabled: getEnvAsBool("CLEARING_ENABLED", true),
			Hour:    getEnvAsInt("CLEARING_HOUR", 3),
		},
		Events: EventsConfig{
			Workers:   getEnvAsInt("EVENTS_WORKERS", 4),
			QueueSize: getEnvAsInt("EVENTS_QUEUE_SIZE", 256),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	switch c.Notification.Transport {
	case TransportLog:
	case TransportWebhook:
		if c.Notification.WebhookURL == "" {
			return fmt.Errorf("NOTIFY_WEBHOOK_URL is required for the webhook transport")
		}
	case TransportRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis transport")
		}
	default:
		return fmt.Errorf("invalid NOTIFY_TRANSPORT %q", c.Notification.Transport)
	}
	if c.Clearing.Hour < 0 || c.Clearing.Hour > 23 {
		return fmt.Errorf("invalid CLEARING_HOUR %d", c.Clearing.Hour)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the hotel-local timezone. Load has already validated it.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// Timeout returns the per-notification delivery timeout.
func (n NotificationConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutMS) * time.Millisecond
}

// Timeout returns the per-request PMS timeout.
func (p PMSConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// Interval returns the tick period of the dispatch worker.
func (d DispatchConfig) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

// Staleness is how long a ticket may sit unassigned before dispatch claims it.
func (d DispatchConfig) Staleness() time.Duration {
	return time.Duration(d.StalenessMinutes) * time.Minute
}

// LockTTL bounds how long one process may hold the dispatch lock.
func (d DispatchConfig) LockTTL() time.Duration {
	return time.Duration(d.LockTTLSeconds) * time.Second
}

// SessionIdle is how long a staff session counts as active without activity.
func (d DispatchConfig) SessionIdle() time.Duration {
	return time.Duration(d.SessionIdleMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
