// Package config loads process configuration from the environment.
//
// Values come from an optional .env file (godotenv) and are decoded into
// Config with envdecode. A missing database connection string or token
// signing secret is a ConfigurationError and the process must not serve.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// MinBcryptCost is the lowest work factor accepted for password hashing.
const MinBcryptCost = 10

type Config struct {
	Env             string        `env:"APP_ENV,default=dev"`
	Port            string        `env:"PORT,default=8080"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	BodyLimitMB     int           `env:"BODY_LIMIT_MB,default=4"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX,default=60"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW,default=60s"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=json"`

	Database DatabaseConfig
	Auth     AuthConfig
}

// DatabaseConfig holds the connection string and the conservative pool and
// readiness parameters used by the connection manager.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`

	// Discrete settings, used only when DATABASE_URL is empty.
	Host     string `env:"DB_HOST,default=db"`
	Port     string `env:"DB_PORT,default=5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE,default=disable"`

	MaxOpenConns         int           `env:"DB_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns         int           `env:"DB_MAX_IDLE_CONNS,default=2"`
	ConnectTimeout       time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	IdleTimeout          time.Duration `env:"DB_IDLE_TIMEOUT,default=45s"`
	ConnMaxLifetime      time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	ProbeTimeout         time.Duration `env:"DB_PROBE_TIMEOUT,default=1s"`
	ReadyPollInterval    time.Duration `env:"DB_READY_POLL_INTERVAL,default=100ms"`
	ReadyPollMaxInterval time.Duration `env:"DB_READY_POLL_MAX_INTERVAL,default=500ms"`
	ReadyMaxAttempts     int           `env:"DB_READY_MAX_ATTEMPTS,default=50"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"JWT_TTL,default=168h"`
	Issuer     string        `env:"JWT_ISSUER,default=equiherds"`
	BcryptCost int           `env:"BCRYPT_COST,default=12"`
}

// ConfigurationError reports settings that are required at process start.
type ConfigurationError struct {
	Missing []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return "configuration error: missing " + strings.Join(e.Missing, ", ")
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Load reads the given env files (".env" when none are named; missing files
// are skipped) and decodes the environment into a validated Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Err: fmt.Errorf("load %s: %w", f, err)}
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, &ConfigurationError{Err: err}
	}

	// JWT_SECRET_KEY is the older name for the signing secret.
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and clamps tunables to safe values.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.DSN() == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	if c.Auth.BcryptCost < MinBcryptCost {
		c.Auth.BcryptCost = MinBcryptCost
	}
	if c.Auth.TokenTTL <= 0 {
		return &ConfigurationError{Err: fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TokenTTL)}
	}
	if c.Database.ReadyMaxAttempts <= 0 {
		c.Database.ReadyMaxAttempts = 1
	}
	if c.Database.ReadyPollMaxInterval < c.Database.ReadyPollInterval {
		c.Database.ReadyPollMaxInterval = c.Database.ReadyPollInterval
	}
	return nil
}

// DSN returns DATABASE_URL, or builds a postgres URL from the discrete DB_*
// settings when DB_NAME and DB_USER are present.
func (d DatabaseConfig) DSN() string {
	if u := strings.TrimSpace(d.URL); u != "" {
		return u
	}
	if d.Name == "" || d.User == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// BodyLimitBytes is the request body limit handed to fiber.
func (c *Config) BodyLimitBytes() int {
	if c.BodyLimitMB <= 0 {
		return 4 * 1024 * 1024
	}
	return c.BodyLimitMB * 1024 * 1024
}
