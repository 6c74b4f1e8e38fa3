// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.PluralKit.Token = "pk-token"
	cfg.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestValidateRequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.PluralKit.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing token to be rejected")
	}
}

func TestValidateRequiresLongSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Security.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("expected short jwt secret to be rejected")
	}
}

func TestValidateMaxFronters(t *testing.T) {
	cfg := validConfig()
	cfg.PluralKit.MaxFronters = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected zero max_fronters to be rejected")
	}
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()
	if cfg.PluralKit.MaxFronters != 5 {
		t.Errorf("expected default max_fronters 5, got %d", cfg.PluralKit.MaxFronters)
	}
	if cfg.PluralKit.CacheTTL != 30*time.Second {
		t.Errorf("expected default cache TTL 30s, got %v", cfg.PluralKit.CacheTTL)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
}

func TestEnvTransform(t *testing.T) {
	cases := map[string]string{
		"DOUGH_PLURALKIT_TOKEN":        "pluralkit.token",
		"DOUGH_SECURITY_JWT_SECRET":    "security.jwt_secret",
		"DOUGH_SERVER_PORT":            "server.port",
		"DOUGH_PLURALKIT_MAX_FRONTERS": "pluralkit.max_fronters",
	}
	for in, want := range cases {
		if got := envTransform(in); got != want {
			t.Errorf("envTransform(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
pluralkit:
  token: file-token
  max_fronters: 4
security:
  jwt_secret: 0123456789abcdef0123456789abcdef
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("DOUGH_PLURALKIT_TOKEN", "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PluralKit.Token != "env-token" {
		t.Errorf("env override lost, got token %q", cfg.PluralKit.Token)
	}
	if cfg.PluralKit.MaxFronters != 4 {
		t.Errorf("file value lost, got max_fronters %d", cfg.PluralKit.MaxFronters)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default lost, got port %d", cfg.Server.Port)
	}
}
