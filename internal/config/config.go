package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAppName         = "SecureWallet"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultInitialBalance  = 1000
	defaultMaxBufferSize   = 4096
	defaultInvokeRateLimit = 120
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	overlayEnvVar          = "WALLET_CONFIG"
)

// Config captures application runtime configuration loaded from environment
// variables, optionally layered over a YAML file.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	InitialBalance  int64
	MaxBufferSize   int
	InvokeRateLimit int
}

// fileConfig mirrors the environment variables in the YAML overlay.
type fileConfig struct {
	AppName         string `yaml:"app_name"`
	AppEnv          string `yaml:"app_env"`
	Port            string `yaml:"port"`
	LogLevel        string `yaml:"log_level"`
	DatabaseURL     string `yaml:"database_url"`
	RedisURL        string `yaml:"redis_url"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	IdempotencyTTL  string `yaml:"idempotency_ttl"`
	InitialBalance  *int64 `yaml:"initial_balance"`
	MaxBufferSize   *int   `yaml:"max_buffer_size"`
	InvokeRateLimit *int   `yaml:"invoke_rate_limit"`
}

// source resolves a key from the environment first, then from the overlay.
type source map[string]string

// Load reads configuration values from the environment and populates a Config
// instance. When WALLET_CONFIG names a YAML file its values are used wherever
// the matching variable is unset.
func Load() (Config, error) {
	src := source{}
	if path := os.Getenv(overlayEnvVar); path != "" {
		var err error
		if src, err = loadOverlay(path); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		AppName:         src.get("APP_NAME", defaultAppName),
		AppEnv:          src.get("APP_ENV", defaultAppEnv),
		Port:            src.get("PORT", defaultPort),
		LogLevel:        strings.ToLower(src.get("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     src.get("DATABASE_URL", ""),
		RedisURL:        src.get("REDIS_URL", ""),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		InitialBalance:  defaultInitialBalance,
		MaxBufferSize:   defaultMaxBufferSize,
		InvokeRateLimit: defaultInvokeRateLimit,
	}

	var err error
	if cfg.ShutdownPeriod, err = src.duration(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = src.duration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}

	if v := src.get("INITIAL_BALANCE", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INITIAL_BALANCE: %w", err)
		}
		if n < 0 {
			return Config{}, fmt.Errorf("INITIAL_BALANCE must not be negative")
		}
		cfg.InitialBalance = n
	}

	if v := src.get("MAX_BUFFER_SIZE", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAX_BUFFER_SIZE: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("MAX_BUFFER_SIZE must be positive")
		}
		cfg.MaxBufferSize = n
	}

	if v := src.get("INVOKE_RATE_LIMIT", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INVOKE_RATE_LIMIT: %w", err)
		}
		if n < 0 {
			return Config{}, fmt.Errorf("INVOKE_RATE_LIMIT must not be negative")
		}
		cfg.InvokeRateLimit = n
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether external backends may be omitted.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}

func loadOverlay(path string) (source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", overlayEnvVar, err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	src := source{
		"APP_NAME":             f.AppName,
		"APP_ENV":              f.AppEnv,
		"PORT":                 f.Port,
		"LOG_LEVEL":            f.LogLevel,
		"DATABASE_URL":         f.DatabaseURL,
		"REDIS_URL":            f.RedisURL,
		shutdownDurationEnvVar: f.ShutdownTimeout,
		idemTTLDurEnvVar:       f.IdempotencyTTL,
	}
	if f.InitialBalance != nil {
		src["INITIAL_BALANCE"] = strconv.FormatInt(*f.InitialBalance, 10)
	}
	if f.MaxBufferSize != nil {
		src["MAX_BUFFER_SIZE"] = strconv.Itoa(*f.MaxBufferSize)
	}
	if f.InvokeRateLimit != nil {
		src["INVOKE_RATE_LIMIT"] = strconv.Itoa(*f.InvokeRateLimit)
	}
	return src, nil
}

func (s source) get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := s[key]; value != "" {
		return value
	}
	return fallback
}

// duration resolves a "<NAME>_SECONDS" integer or a "<NAME>" Go duration,
// preferring the seconds form.
func (s source) duration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := s.get(secondsKey, ""); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := s.get(durationKey, ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}
