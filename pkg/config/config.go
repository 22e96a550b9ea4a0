package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	OIDC          identity.ProviderConfig
	Authz         AuthzConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds the subject cache configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// AuthzConfig holds authorization configuration
type AuthzConfig struct {
	// TableOverridePath points at an optional YAML permission table override.
	// Empty means the built-in defaults.
	TableOverridePath string
	// WatchTable reloads the override file on change.
	WatchTable bool
	// SweepSchedule is the cron expression for the invitation expiry sweep.
	SweepSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("DESKHIVE_HOST", "0.0.0.0"),
			Port:            getEnv("DESKHIVE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("DESKHIVE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("DESKHIVE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("DESKHIVE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("DESKHIVE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("DESKHIVE_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DESKHIVE_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("DESKHIVE_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("DESKHIVE_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("DESKHIVE_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("DESKHIVE_REDIS_URL", ""),
			Password: getEnv("DESKHIVE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("DESKHIVE_REDIS_DB", 0),
			Enabled:  getEnvBool("DESKHIVE_CACHE_ENABLED", false),
			CacheTTL: getEnvDuration("DESKHIVE_CACHE_TTL", 30*time.Second),
		},
		OIDC: identity.ProviderConfig{
			IssuerURL:    getEnv("DESKHIVE_OIDC_ISSUER", ""),
			ClientID:     getEnv("DESKHIVE_OIDC_CLIENT_ID", ""),
			ClientSecret: getEnv("DESKHIVE_OIDC_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("DESKHIVE_OIDC_REDIRECT_URL", ""),
			Scopes:       splitList(getEnv("DESKHIVE_OIDC_SCOPES", "openid,profile,email")),
		},
		Authz: AuthzConfig{
			TableOverridePath: getEnv("DESKHIVE_AUTHZ_TABLE_PATH", ""),
			WatchTable:        getEnvBool("DESKHIVE_AUTHZ_TABLE_WATCH", false),
			SweepSchedule:     getEnv("DESKHIVE_INVITE_SWEEP_SCHEDULE", "@hourly"),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("DESKHIVE_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("DESKHIVE_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("DESKHIVE_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("DESKHIVE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("DESKHIVE_OTEL_SERVICE_NAME", "deskhive"),
			OTelServiceVersion: getEnv("DESKHIVE_OTEL_SERVICE_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if err := c.OIDC.Validate(); err != nil {
		return fmt.Errorf("oidc configuration: %w", err)
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when the cache is enabled")
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
