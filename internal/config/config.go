// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package config loads and validates the service configuration using
// Koanf v2 with layered sources: struct defaults, an optional YAML file,
// and DOUGH_* environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the backend.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	PluralKit PluralKitConfig `koanf:"pluralkit"`
	Security  SecurityConfig  `koanf:"security"`
	Storage   StorageConfig   `koanf:"storage"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

// PluralKitConfig holds upstream API settings.
type PluralKitConfig struct {
	// BaseURL is the PluralKit API root (no trailing slash).
	BaseURL string `koanf:"base_url"`
	// Token is the system bearer token. Required.
	Token string `koanf:"token"`
	// CacheTTL is how long upstream responses stay fresh.
	CacheTTL time.Duration `koanf:"cache_ttl"`
	// MaxFronters bounds simultaneous fronters and cofront size.
	MaxFronters int `koanf:"max_fronters"`
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Minimum 32 characters.
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// AdminUsername/AdminPassword bootstrap the first admin account
	// when the user store is empty.
	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// StorageConfig holds local persistence settings.
type StorageConfig struct {
	// DataDir is the directory for the JSON-file stores.
	DataDir string `koanf:"data_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values the service cannot run without.
func (c *Config) Validate() error {
	if c.PluralKit.Token == "" {
		return fmt.Errorf("pluralkit.token is required (DOUGH_PLURALKIT_TOKEN)")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	if c.PluralKit.MaxFronters < 1 {
		return fmt.Errorf("pluralkit.max_fronters must be at least 1, got %d", c.PluralKit.MaxFronters)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	return nil
}
