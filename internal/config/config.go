// Package config loads Eventify settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// minSecretLen is the shortest HMAC signing secret accepted at startup.
const minSecretLen = 32

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	Tracing  TracingConfig

	Certificate CertificateConfig

	// Store selects the event/user store implementation.
	Store string `env:"EVENTIFY_STORE" envDefault:"postgres"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `env:"PORT"                   envDefault:"8080"`
	ReadTimeout  time.Duration `env:"EVENTIFY_READ_TIMEOUT"  envDefault:"15s"`
	WriteTimeout time.Duration `env:"EVENTIFY_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"EVENTIFY_IDLE_TIMEOUT"  envDefault:"60s"`
	// CORSOrigin is echoed in Access-Control-Allow-Origin.
	CORSOrigin string `env:"EVENTIFY_CORS_ORIGIN" envDefault:"*"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST"     envDefault:"localhost"`
	Port     string `env:"DB_PORT"     envDefault:"5432"`
	User     string `env:"DB_USER"     envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB_NAME"     envDefault:"eventify"`
	SSLMode  string `env:"DB_SSLMODE"  envDefault:"disable"`

	MaxConns        int32         `env:"DB_MAX_CONNS"         envDefault:"20"`
	MinConns        int32         `env:"DB_MIN_CONNS"         envDefault:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE"     envDefault:"5m"`
	ConnectAttempts int           `env:"DB_CONNECT_ATTEMPTS"  envDefault:"5"`
}

// DSN builds a libpq-compatible connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrationURL builds the pgx5:// URL golang-migrate expects.
func (c DatabaseConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// AuthConfig holds credential issuing and verification settings.
type AuthConfig struct {
	// JWTSecret signs and verifies bearer tokens. Required.
	JWTSecret string        `env:"EVENTIFY_JWT_SECRET"`
	Issuer    string        `env:"EVENTIFY_JWT_ISSUER" envDefault:"eventify"`
	TokenTTL  time.Duration `env:"EVENTIFY_TOKEN_TTL"  envDefault:"1h"`
	// AllowAdminSignup lets the public signup endpoint create admin accounts.
	AllowAdminSignup bool `env:"EVENTIFY_ALLOW_ADMIN_SIGNUP" envDefault:"false"`
}

// LogConfig controls the slog handler.
// Level is any name slog.Level understands (debug, info, warn, error).
type LogConfig struct {
	Level  string `env:"EVENTIFY_LOG_LEVEL"  envDefault:"info"`
	Format string `env:"EVENTIFY_LOG_FORMAT" envDefault:"json"`
}

// TracingConfig controls the OpenTelemetry provider.
type TracingConfig struct {
	// Exporter is one of none, stdout, otlp.
	Exporter     string  `env:"EVENTIFY_TRACE_EXPORTER"      envDefault:"none"`
	OTLPEndpoint string  `env:"EVENTIFY_TRACE_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	SampleRate   float64 `env:"EVENTIFY_TRACE_SAMPLE_RATE"   envDefault:"1"`
	ServiceName  string  `env:"EVENTIFY_SERVICE_NAME"        envDefault:"eventify"`
}

// CertificateConfig controls certificate rendering.
type CertificateConfig struct {
	// FontPath is a TrueType font for non-Latin names; empty uses Helvetica.
	FontPath string `env:"EVENTIFY_CERT_FONT"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase parses only the database settings, for commands that never
// issue tokens or serve requests.
func LoadDatabase() (DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := env.Parse(&cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks settings env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("EVENTIFY_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}

	secret := strings.TrimSpace(c.Auth.JWTSecret)
	switch {
	case secret == "":
		errs = append(errs, errors.New("EVENTIFY_JWT_SECRET is required"))
	case len(secret) < minSecretLen:
		errs = append(errs, fmt.Errorf("EVENTIFY_JWT_SECRET must be at least %d bytes", minSecretLen))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("EVENTIFY_TOKEN_TTL must be positive"))
	}

	switch c.Tracing.Exporter {
	case "none", "", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unsupported EVENTIFY_TRACE_EXPORTER %q", c.Tracing.Exporter))
	}

	if c.Certificate.FontPath != "" {
		if _, err := os.Stat(c.Certificate.FontPath); err != nil {
			errs = append(errs, fmt.Errorf("EVENTIFY_CERT_FONT: %w", err))
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("unsupported EVENTIFY_LOG_LEVEL %q", c.Log.Level))
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unsupported EVENTIFY_LOG_FORMAT %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
