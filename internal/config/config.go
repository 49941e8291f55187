// Package config loads process configuration for the command-line tooling:
// a TOML file with environment-variable overrides. Credentials are never
// hardcoded; they come from the file or the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variable overrides. Each one, when set, takes precedence over
// the corresponding file value.
const (
	EnvClientID     = "GRAPHAUTH_CLIENT_ID"
	EnvClientSecret = "GRAPHAUTH_CLIENT_SECRET"
	EnvTenant       = "GRAPHAUTH_TENANT"
	EnvRedirectURL  = "GRAPHAUTH_REDIRECT_URL"
	EnvDatabasePath = "GRAPHAUTH_DATABASE_PATH"
	EnvGraphBaseURL = "GRAPHAUTH_GRAPH_BASE_URL"
)

// Config is the process configuration.
type Config struct {
	// Auth holds the system-default application registration.
	Auth AuthConfig `toml:"auth"`

	// Database holds storage settings.
	Database DatabaseConfig `toml:"database"`

	// Graph holds resource API settings.
	Graph GraphConfig `toml:"graph"`

	// Sweep holds maintenance sweep settings.
	Sweep SweepConfig `toml:"sweep"`
}

// AuthConfig holds the system-default application registration.
type AuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Tenant       string `toml:"tenant"`
	RedirectURL  string `toml:"redirect_url"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// GraphConfig holds resource API settings.
type GraphConfig struct {
	BaseURL string `toml:"base_url"`
}

// SweepConfig holds maintenance sweep settings.
type SweepConfig struct {
	// Window is how far ahead of expiry the sweep refreshes tokens.
	Window time.Duration `toml:"window"`

	// Concurrency bounds concurrent refreshes.
	Concurrency int `toml:"concurrency"`
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "graphauth.toml"
	}
	return filepath.Join(home, ".config", "graphauth", "config.toml")
}

// Load reads the configuration file at path (when it exists) and applies
// environment overrides and defaults. A missing file is not an error: a
// fully env-configured deployment needs no file at all.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Auth.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Auth.ClientSecret = v
	}
	if v := os.Getenv(EnvTenant); v != "" {
		c.Auth.Tenant = v
	}
	if v := os.Getenv(EnvRedirectURL); v != "" {
		c.Auth.RedirectURL = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvGraphBaseURL); v != "" {
		c.Graph.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Database.Path = filepath.Join(home, ".local", "share", "graphauth", "tokens.db")
		} else {
			c.Database.Path = "tokens.db"
		}
	}
	if c.Sweep.Window == 0 {
		c.Sweep.Window = 15 * time.Minute
	}
	if c.Sweep.Concurrency == 0 {
		c.Sweep.Concurrency = 4
	}
}
