package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the operational configuration loaded from YAML.
// Simulation constants are compiled in and not configurable.
type Config struct {
	Addr      string         `yaml:"addr"`
	ClientDir string         `yaml:"client_dir"`
	PublicURL string         `yaml:"public_url"`
	Log       LogConfig      `yaml:"log"`
	Database  DatabaseConfig `yaml:"database"`
	Admin     AdminConfig    `yaml:"admin"`
	Limits    LimitsConfig   `yaml:"limits"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig enables the /admin endpoints when PasswordHash is set.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	JWTSecret    string `yaml:"jwt_secret"`
	TokenTTL     string `yaml:"token_ttl"`
}

type LimitsConfig struct {
	MaxConnsPerIP     int `yaml:"max_conns_per_ip"`
	MaxTotalConns     int `yaml:"max_total_conns"`
	MaxMessagesPerSec int `yaml:"max_messages_per_sec"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Addr:      ":8765",
		PublicURL: "http://localhost:8765",
		Log:       LogConfig{Level: "info"},
		Admin:     AdminConfig{Username: "admin", TokenTTL: "12h"},
		Limits: LimitsConfig{
			MaxConnsPerIP:     5,
			MaxTotalConns:     1000,
			MaxMessagesPerSec: 120,
		},
	}
}

// LoadConfig reads path on top of DefaultConfig. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, fmt.Errorf("addr is required"))
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("public_url %q must be an absolute URL", c.PublicURL))
		}
	}
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	if c.Admin.TokenTTL != "" {
		d, err := time.ParseDuration(c.Admin.TokenTTL)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing admin.token_ttl: %w", err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("admin.token_ttl must be positive"))
		}
	}
	if c.Admin.PasswordHash != "" && strings.TrimSpace(c.Admin.Username) == "" {
		errs = append(errs, fmt.Errorf("admin.username is required when admin.password_hash is set"))
	}
	if c.Limits.MaxConnsPerIP <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_conns_per_ip must be positive"))
	}
	if c.Limits.MaxTotalConns <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_total_conns must be positive"))
	}
	if c.Limits.MaxMessagesPerSec <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_messages_per_sec must be positive"))
	}

	return errors.Join(errs...)
}

// TTL returns the parsed token lifetime, 12h when unset or invalid.
func (c AdminConfig) TTL() time.Duration {
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}
