package config

import (
	"fmt"
	"time"

	"github.com/dquiroga/ManufactureGo/pkg/config"
	"github.com/dquiroga/ManufactureGo/pkg/database"
	"github.com/dquiroga/ManufactureGo/pkg/tracing"
)

// Config holds all runtime configuration, loaded from environment
// variables.
type Config struct {
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"manufacturing"`
	ServiceVersion  string        `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"manufacturing"`
	PostgresPassword string        `env:"POSTGRES_PASSWORD,required,notEmpty"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"manufacturing"`
	PostgresSSLMode  string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"20"`
	PostgresMinConns int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	PostgresConnLife time.Duration `env:"POSTGRES_CONN_LIFETIME" envDefault:"30m"`
	PostgresConnIdle time.Duration `env:"POSTGRES_CONN_IDLE" envDefault:"5m"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`

	WorkflowCacheTTL time.Duration `env:"WORKFLOW_CACHE_TTL" envDefault:"10m"`

	JWTSecret          string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Registration requires an admin token, so a fresh install seeds one
	// admin account from these variables.
	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL" envDefault:""`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD" envDefault:""`

	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// PostgresConfig builds the connection pool configuration.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPassword,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSLMode,
		MaxConns:        c.PostgresMaxConns,
		MinConns:        c.PostgresMinConns,
		MaxConnLifetime: c.PostgresConnLife,
		MaxConnIdleTime: c.PostgresConnIdle,
	}
}

// RedisConfig builds the Redis client configuration.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// TracingConfig builds the OpenTelemetry tracer configuration.
func (c *Config) TracingConfig() tracing.Config {
	return tracing.Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		OTLPEndpoint:   c.TracingEndpoint,
		SampleRate:     c.TracingSampleRate,
		Enabled:        c.TracingEnabled,
	}
}
