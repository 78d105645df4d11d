package opsauth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/opsauth/permission"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Authorization.DefaultPolicy != permission.AllowAuthenticated {
		t.Fatalf("expected allow-authenticated default, got %v", cfg.Authorization.DefaultPolicy)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"relative url":    func(c *Config) { c.Gateway.BaseURL = "/auth" },
		"bad scheme":      func(c *Config) { c.Gateway.BaseURL = "ftp://host" },
		"negative":        func(c *Config) { c.Gateway.Timeout = -time.Second },
		"unknown backend": func(c *Config) { c.Storage.Backend = "sqlite" },
		"file no path":    func(c *Config) { c.Storage.FilePath = " " },
		"redis no addr":   func(c *Config) { c.Storage.Backend = StorageRedis; c.Storage.RedisAddr = "" },
		"policy":          func(c *Config) { c.Authorization.DefaultPolicy = 9 },
		"histograms":      func(c *Config) { c.Metrics.Enabled = false },
		"audit buffer":    func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
		"log level":       func(c *Config) { c.Log.Level = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfigFromDotenvAndEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "console.env")
	content := strings.Join([]string{
		"OPSAUTH_API_URL=https://auth.example.test",
		"OPSAUTH_API_TIMEOUT=3s",
		"OPSAUTH_STORAGE=redis",
		"OPSAUTH_REDIS_ADDR=redis.internal:6379",
		"OPSAUTH_REDIS_DB=2",
		"OPSAUTH_ROUTE_POLICY=deny",
		"OPSAUTH_LOG_LEVEL=debug",
	}, "\n")
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvAPITimeout, "7s")
	t.Setenv(EnvAudit, "true")

	cfg, err := LoadConfig(envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Gateway.BaseURL != "https://auth.example.test" {
		t.Fatalf("unexpected base url %q", cfg.Gateway.BaseURL)
	}
	if cfg.Gateway.Timeout != 7*time.Second {
		t.Fatalf("expected environment to win, got %v", cfg.Gateway.Timeout)
	}
	if cfg.Storage.Backend != StorageRedis || cfg.Storage.RedisAddr != "redis.internal:6379" || cfg.Storage.RedisDB != 2 {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Authorization.DefaultPolicy != permission.Deny {
		t.Fatalf("expected deny policy, got %v", cfg.Authorization.DefaultPolicy)
	}
	if !cfg.Audit.Enabled || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected audit/log config %+v %+v", cfg.Audit, cfg.Log)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv(EnvAPITimeout, "soon")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.env")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadConfigMetricsOffDisablesHistograms(t *testing.T) {
	t.Setenv(EnvMetrics, "false")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.env"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Metrics.Enabled || cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("expected metrics off, got %+v", cfg.Metrics)
	}
}
