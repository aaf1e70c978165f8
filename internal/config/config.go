package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	defaultSessionSecret = "default-secret-key-change-me"
	defaultJWTSecret     = "default-jwt-secret-change-me"
)

type Config struct {
	DBDriver      string        `env:"DB_DRIVER" envDefault:"mysql"`
	DBHost        string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort        string        `env:"DB_PORT" envDefault:"3306"`
	DBUser        string        `env:"DB_USER" envDefault:"taskuser"`
	DBPassword    string        `env:"DB_PASSWORD" envDefault:"taskpassword"`
	DBName        string        `env:"DB_NAME" envDefault:"task_management"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string        `env:"REDIS_PORT" envDefault:"6379"`
	SessionSecret string        `env:"SESSION_SECRET" envDefault:"default-secret-key-change-me"`
	JWTSecret     string        `env:"JWT_SECRET" envDefault:"default-jwt-secret-change-me"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	GinMode       string        `env:"GIN_MODE" envDefault:"debug"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	Port          string        `env:"PORT" envDefault:"8080"`

	AuthRateLimit  int64  `env:"AUTH_RATE_LIMIT" envDefault:"60"`
	AuthRatePeriod string `env:"AUTH_RATE_PERIOD" envDefault:"1m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// Validate rejects configurations that cannot start safely.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if _, err := time.ParseDuration(c.AuthRatePeriod); err != nil {
		return fmt.Errorf("invalid AUTH_RATE_PERIOD %q: %w", c.AuthRatePeriod, err)
	}
	if c.IsProduction() {
		if c.SessionSecret == "" || c.SessionSecret == defaultSessionSecret {
			return errors.New("SESSION_SECRET must be set in release mode")
		}
		if c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in release mode")
		}
	}
	return nil
}
