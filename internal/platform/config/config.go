// Copyright (c) 2026 Cobalt. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token codec) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Cobalt API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing
	JWTSecret            string `env:"JWT_SECRET,required"`
	AccessTokenTTLMins   int    `env:"JWT_ACCESS_TTL_MINUTES"  envDefault:"15"`
	RefreshTokenTTLDays  int    `env:"JWT_REFRESH_TTL_DAYS"    envDefault:"30"`

	// Password hashing (Argon2id)
	Argon2TimeCost    uint32 `env:"ARGON2_TIME_COST"    envDefault:"2"`
	Argon2MemoryCost  uint32 `env:"ARGON2_MEMORY_COST"  envDefault:"65536"`
	Argon2Parallelism uint8  `env:"ARGON2_PARALLELISM"  envDefault:"2"`

	// PasswordMinLength is the minimum accepted password length at registration.
	PasswordMinLength int `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`

	// HashingWorkers bounds the number of concurrent Argon2 computations so
	// login storms cannot exhaust CPU for unrelated requests.
	HashingWorkers int `env:"HASHING_WORKERS" envDefault:"4"`

	// ExtraOrigins is a comma-separated list of origins allowed by CORS in
	// addition to the first-party domains (e.g. a partner dashboard).
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects values that would silently weaken security at runtime.
func (c *Config) validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("config: JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
	}
	if c.AccessTokenTTLMins < 1 {
		return fmt.Errorf("config: JWT_ACCESS_TTL_MINUTES must be >= 1")
	}
	if c.RefreshTokenTTLDays < 1 {
		return fmt.Errorf("config: JWT_REFRESH_TTL_DAYS must be >= 1")
	}
	if c.PasswordMinLength < 6 {
		return fmt.Errorf("config: PASSWORD_MIN_LENGTH must be >= 6")
	}
	if c.HashingWorkers < 1 {
		return fmt.Errorf("config: HASHING_WORKERS must be >= 1")
	}
	return nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMins) * time.Minute
}

// RefreshTokenTTL returns the configured refresh-token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// ExtraAllowedOrigins returns the parsed EXTRA_ORIGINS entries, trimmed of
// surrounding whitespace. Empty entries are dropped.
func (c *Config) ExtraAllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}

	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
