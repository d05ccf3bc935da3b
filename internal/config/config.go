package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized at startup. Each overrides the
// corresponding config file value.
const (
	EnvConfigPath  = "CONFIG_PATH"
	EnvDBPath      = "DB_PATH"
	EnvAdminSecret = "ADMIN_SECRET"
	EnvTimeout     = "DEFAULT_TIMEOUT"
	EnvPort        = "PORT"
	EnvDefaultBase = "DEFAULT_BASE_URL"
)

// Defaults applied when neither environment nor config file set a value.
const (
	DefaultDSN             = "store.db"
	DefaultAdminSecret     = "CHANGE_ME"
	DefaultSupplierTimeout = 3 * time.Second
	DefaultPort            = 8000
	DefaultSupplierBaseURL = "https://mail72h.com"
)

// Config holds resolved application configuration. It is built once at
// startup and passed explicitly into component constructors.
type Config struct {
	DatabaseDSN     string        // Key store DSN (sqlite path or postgres URL).
	AdminSecret     string        // Shared secret gating every admin route.
	SupplierTimeout time.Duration // Per-call timeout for outbound supplier requests.
	Port            int           // HTTP listen port.
	SupplierBaseURL string        // Fallback supplier base URL for rows with none.
}

// fileConfig maps the optional YAML config file.
type fileConfig struct {
	DatabaseDSN string `yaml:"database-dsn"`
	AdminSecret string `yaml:"admin-secret"`
	Port        int    `yaml:"port"`
	Supplier    struct {
		Timeout time.Duration `yaml:"timeout"`
		BaseURL string        `yaml:"base-url"`
	} `yaml:"supplier"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load resolves configuration from the optional YAML file at configPath and
// the environment, env values winning. A missing config file is not an error.
func Load(configPath string) (Config, error) {
	cfg := Config{
		DatabaseDSN:     DefaultDSN,
		AdminSecret:     DefaultAdminSecret,
		SupplierTimeout: DefaultSupplierTimeout,
		Port:            DefaultPort,
		SupplierBaseURL: DefaultSupplierBaseURL,
	}

	data, errRead := os.ReadFile(ResolveConfigPath(configPath))
	if errRead == nil {
		var fc fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &fc); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse config file: %w", errUnmarshal)
		}
		if dsn := strings.TrimSpace(fc.DatabaseDSN); dsn != "" {
			cfg.DatabaseDSN = dsn
		}
		if secret := strings.TrimSpace(fc.AdminSecret); secret != "" {
			cfg.AdminSecret = secret
		}
		if fc.Port > 0 {
			cfg.Port = fc.Port
		}
		if fc.Supplier.Timeout > 0 {
			cfg.SupplierTimeout = fc.Supplier.Timeout
		}
		if base := strings.TrimSpace(fc.Supplier.BaseURL); base != "" {
			cfg.SupplierBaseURL = base
		}
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBPath)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvAdminSecret)); secret != "" {
		cfg.AdminSecret = secret
	}
	if raw := strings.TrimSpace(os.Getenv(EnvTimeout)); raw != "" {
		timeout, errParse := parseTimeout(raw)
		if errParse != nil {
			return Config{}, fmt.Errorf("config: invalid %s %q: %w", EnvTimeout, raw, errParse)
		}
		cfg.SupplierTimeout = timeout
	}
	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, errParse := strconv.Atoi(raw)
		if errParse != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("config: invalid %s %q", EnvPort, raw)
		}
		cfg.Port = port
	}
	if base := strings.TrimSpace(os.Getenv(EnvDefaultBase)); base != "" {
		cfg.SupplierBaseURL = base
	}

	return cfg, nil
}

// parseTimeout accepts either whole seconds ("3") or a Go duration ("1500ms").
func parseTimeout(raw string) (time.Duration, error) {
	if secs, errAtoi := strconv.Atoi(raw); errAtoi == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("timeout must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	timeout, errParse := time.ParseDuration(raw)
	if errParse != nil {
		return 0, errParse
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}
	return timeout, nil
}
