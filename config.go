package opsauth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrEthical07/opsauth/internal/logging"
	"github.com/MrEthical07/opsauth/permission"
)

// Config holds everything a [Manager] needs that is not an injected dependency.
type Config struct {
	Gateway       GatewayConfig
	Storage       StorageConfig
	Authorization AuthorizationConfig
	Metrics       MetricsConfig
	Audit         AuditConfig
	Log           LogConfig
}

// GatewayConfig points at the authentication API.
type GatewayConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// StorageBackend selects where the session is persisted.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
)

// StorageConfig selects and configures the session backend.
type StorageConfig struct {
	Backend       StorageBackend
	FilePath      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// AuthorizationConfig controls route decisions.
type AuthorizationConfig struct {
	// DefaultPolicy decides routes missing from the route table.
	DefaultPolicy permission.DefaultPolicy
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// LogConfig configures the logger built by opsctl. A logger injected through
// Builder.WithLogger takes precedence.
type LogConfig struct {
	Level string
	JSON  bool
}

// DefaultConfig returns a file-backed configuration pointing at a local API.
func DefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   10 * time.Second,
			UserAgent: "opsauth",
		},
		Storage: StorageConfig{
			Backend:     StorageFile,
			FilePath:    defaultSessionFile(),
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "opsauth",
		},
		Authorization: AuthorizationConfig{
			DefaultPolicy: permission.AllowAuthenticated,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".opsauth-session"
	}
	return filepath.Join(dir, "opsauth", "session")
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Gateway.BaseURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("Gateway BaseURL must be an absolute http(s) URL")
	}
	if c.Gateway.Timeout < 0 {
		return errors.New("Gateway Timeout must be >= 0")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.FilePath) == "" {
			return errors.New("Storage FilePath required for file backend")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("Storage RedisAddr required for redis backend")
		}
		if c.Storage.RedisDB < 0 {
			return errors.New("Storage RedisDB must be >= 0")
		}
	default:
		return fmt.Errorf("unknown Storage Backend %q", c.Storage.Backend)
	}

	if c.Authorization.DefaultPolicy != permission.AllowAuthenticated && c.Authorization.DefaultPolicy != permission.Deny {
		return errors.New("unknown Authorization DefaultPolicy")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Environment variables read by LoadConfig.
const (
	EnvAPIURL        = "OPSAUTH_API_URL"
	EnvAPITimeout    = "OPSAUTH_API_TIMEOUT"
	EnvUserAgent     = "OPSAUTH_USER_AGENT"
	EnvStorage       = "OPSAUTH_STORAGE"
	EnvSessionFile   = "OPSAUTH_SESSION_FILE"
	EnvRedisAddr     = "OPSAUTH_REDIS_ADDR"
	EnvRedisPassword = "OPSAUTH_REDIS_PASSWORD"
	EnvRedisDB       = "OPSAUTH_REDIS_DB"
	EnvRedisPrefix   = "OPSAUTH_REDIS_PREFIX"
	EnvRoutePolicy   = "OPSAUTH_ROUTE_POLICY"
	EnvMetrics       = "OPSAUTH_METRICS"
	EnvAudit         = "OPSAUTH_AUDIT"
	EnvLogLevel      = "OPSAUTH_LOG_LEVEL"
	EnvLogJSON       = "OPSAUTH_LOG_JSON"
)

// LoadConfig starts from DefaultConfig, applies OPSAUTH_* values found in the
// given dotenv files, then applies the process environment, which wins.
// Missing files are skipped. With no files, ".env" is tried.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	values := make(map[string]string)
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		fileValues, err := godotenv.Read(f)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, f, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, "OPSAUTH_") {
			values[k] = v
		}
	}

	cfg := DefaultConfig()
	if err := applyEnv(&cfg, values); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, values map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := values[key]; ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvAPIURL, &cfg.Gateway.BaseURL)
	str(EnvUserAgent, &cfg.Gateway.UserAgent)
	str(EnvSessionFile, &cfg.Storage.FilePath)
	str(EnvRedisAddr, &cfg.Storage.RedisAddr)
	str(EnvRedisPassword, &cfg.Storage.RedisPassword)
	str(EnvRedisPrefix, &cfg.Storage.RedisPrefix)
	str(EnvLogLevel, &cfg.Log.Level)

	if v := strings.TrimSpace(values[EnvAPITimeout]); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %v", EnvAPITimeout, err)
		}
		cfg.Gateway.Timeout = d
	}
	if v := strings.TrimSpace(values[EnvStorage]); v != "" {
		cfg.Storage.Backend = StorageBackend(strings.ToLower(v))
	}
	if v := strings.TrimSpace(values[EnvRedisDB]); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %v", EnvRedisDB, err)
		}
		cfg.Storage.RedisDB = db
	}
	if v, ok := values[EnvRoutePolicy]; ok {
		policy, err := permission.ParseDefaultPolicy(v)
		if err != nil {
			return err
		}
		cfg.Authorization.DefaultPolicy = policy
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvMetrics, &cfg.Metrics.Enabled},
		{EnvAudit, &cfg.Audit.Enabled},
		{EnvLogJSON, &cfg.Log.JSON},
	}
	for _, b := range bools {
		v := strings.TrimSpace(values[b.key])
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %v", b.key, err)
		}
		*b.dst = parsed
	}
	if !cfg.Metrics.Enabled {
		cfg.Metrics.EnableLatencyHistograms = false
	}
	return nil
}
