// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

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
  - DI-Friendly: Passed to core components (Registry, Redis) via constructors.
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

// Config holds all runtime configuration for the FitGate session gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// IdentityBaseURL is the opaque identity provider (the FitTrack API).
	// The gateway treats it as a black box returning
	// {user, token, refreshToken, expiresIn} or failing.
	IdentityBaseURL string `env:"IDENTITY_BASE_URL,required"`

	// Key-Value storage for credentials and session snapshots (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// RefreshThreshold is how close to expiry a token may get before the
	// gateway refreshes it ahead of time.
	RefreshThreshold time.Duration `env:"REFRESH_THRESHOLD" envDefault:"5m"`

	// RefreshCheckInterval is the proactive refresh scheduler tick.
	RefreshCheckInterval time.Duration `env:"REFRESH_CHECK_INTERVAL" envDefault:"60s"`

	// Navigation contract consumed by the route authorizer
	SignInPath         string `env:"SIGN_IN_PATH"         envDefault:"/login"`
	DefaultLandingPath string `env:"DEFAULT_LANDING_PATH" envDefault:"/dashboard"`

	// Cross-Origin Resource Sharing
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

	return cfg, nil
}

// AllowedExtraOrigins splits the EXTRA_ORIGINS list into individual origins.
func (c *Config) AllowedExtraOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}

	origins := strings.Split(c.ExtraOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

// IsDevelopment reports whether the gateway is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the gateway is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
