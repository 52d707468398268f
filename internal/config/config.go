package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL              string        `mapstructure:"REDIS_URL"`
	EventStream           string        `mapstructure:"EVENT_STREAM"`
	AuthIssuer            string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience          string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey        string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	ConflictRetryAttempts int           `mapstructure:"CONFLICT_RETRY_ATTEMPTS"`
	MetricsEnabled        bool          `mapstructure:"METRICS_ENABLED"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit             string        `mapstructure:"BODY_LIMIT"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL", "EVENT_STREAM",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS", "CONFLICT_RETRY_ATTEMPTS",
	"METRICS_ENABLED", "REQUEST_TIMEOUT", "BODY_LIMIT", "LOG_LEVEL",
}

// Load reads the environment and an optional .env file. DATABASE_URL is
// required by the commands that reach the database, which call RequireDatabase.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("EVENT_STREAM", "clinicflow:appointment-events")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CONFLICT_RETRY_ATTEMPTS", 3)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		log.Warn().Msg("development mode: unauthenticated requests run as admin; set ENV=production and AUTH_SIGNING_KEY to enforce JWT auth")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RequireDatabase fails when DATABASE_URL is unset.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Validate checks that the configuration is safe to serve with. Outside
// development a signing key is mandatory so that JWT auth is enforced.
func (c *Config) Validate() error {
	if err := c.RequireDatabase(); err != nil {
		return err
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.ConflictRetryAttempts < 1 {
		return fmt.Errorf("CONFLICT_RETRY_ATTEMPTS must be at least 1, got %d", c.ConflictRetryAttempts)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	if c.IsProduction() && len(c.CORSOrigins) == 1 && c.CORSOrigins[0] == "*" {
		return fmt.Errorf("CORS_ORIGINS must not be a wildcard in production")
	}
	return nil
}
