// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/doughmination/config.yaml",
	"/etc/doughmination/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is the prefix for environment variable overrides, e.g.
// DOUGH_PLURALKIT_TOKEN → pluralkit.token.
const envPrefix = "DOUGH_"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Timeout: 30 * time.Second,
			CORSOrigins: []string{
				"http://localhost:8080",
				"https://www.doughmination.win",
				"https://doughmination.win",
			},
		},
		PluralKit: PluralKitConfig{
			BaseURL:     "https://api.pluralkit.me/v2",
			Token:       "",
			CacheTTL:    30 * time.Second,
			MaxFronters: 5,
			Timeout:     30 * time.Second,
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "",
			AdminPassword:   "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Storage: StorageConfig{
			DataDir: "dough-data",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// DOUGH_* environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// findConfigFile returns the config file path from CONFIG_PATH or the
// first existing default path, or "" when no file is present.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps DOUGH_SECTION_KEY_NAME to section.key_name. The first
// underscore separates the section; the rest of the name keeps its
// underscores, matching the koanf struct tags.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key
	}
	return parts[0] + "." + parts[1]
}
