// Package config handles runtime configuration for the storefront services,
// layering environment variables over defaults and command-line flags over both.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds runtime settings for the API server.
//
// Fields:
//   - Addr: bind address for the HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx).
//   - JWTKey: HMAC secret for signing access tokens (HS256). Required, no default.
//   - JWTIssuer / JWTAudience: token issuer and audience claims.
//   - AccessTTL / RefreshTTL: token and session lifetimes.
//   - RunMigrations: apply pending schema migrations on startup.
type Config struct {
	Addr          string
	DatabaseDSN   string
	JWTKey        string
	JWTIssuer     string
	JWTAudience   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RunMigrations bool
}

func defaults() *Config {
	return &Config{
		Addr:        ":8080",
		JWTIssuer:   "storefront-api",
		JWTAudience: "storefront-web",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  14 * 24 * time.Hour,
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("STOREFRONT_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("STOREFRONT_PG_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("STOREFRONT_JWT_KEY"); v != "" {
		cfg.JWTKey = v
	}
	if v := os.Getenv("STOREFRONT_JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("STOREFRONT_JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("STOREFRONT_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse STOREFRONT_ACCESS_TTL: %w", err)
		}
		cfg.AccessTTL = d
	}
	if v := os.Getenv("STOREFRONT_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse STOREFRONT_REFRESH_TTL: %w", err)
		}
		cfg.RefreshTTL = d
	}
	if v := os.Getenv("STOREFRONT_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse STOREFRONT_MIGRATE: %w", err)
		}
		cfg.RunMigrations = b
	}
	return nil
}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.BoolVar(&cfg.RunMigrations, "m", cfg.RunMigrations, "apply migrations on startup")
	return fs.Parse(args)
}

// Validate rejects configurations that cannot serve requests.
func (c *Config) Validate() error {
	if c.JWTKey == "" {
		return errors.New("config: STOREFRONT_JWT_KEY is required")
	}
	if c.AccessTTL <= 0 {
		return errors.New("config: access ttl must be positive")
	}
	if c.RefreshTTL <= 0 {
		return errors.New("config: refresh ttl must be positive")
	}
	return nil
}

// Load builds a Config by applying defaults, then environment variables and
// finally command-line flags, and validates the result.
func Load(args []string) (*Config, error) {
	cfg := defaults()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
