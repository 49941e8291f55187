package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
[auth]
client_id = "file-client"
client_secret = "file-secret"
tenant = "contoso.onmicrosoft.com"
redirect_url = "https://app.example.com/callback"

[database]
path = "/var/lib/graphauth/tokens.db"

[graph]
base_url = "https://graph.example.com/v1.0"

[sweep]
concurrency = 8
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.ClientID != "file-client" {
		t.Errorf("ClientID = %q", cfg.Auth.ClientID)
	}
	if cfg.Database.Path != "/var/lib/graphauth/tokens.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Graph.BaseURL != "https://graph.example.com/v1.0" {
		t.Errorf("Graph.BaseURL = %q", cfg.Graph.BaseURL)
	}
	if cfg.Sweep.Concurrency != 8 {
		t.Errorf("Sweep.Concurrency = %d", cfg.Sweep.Concurrency)
	}
	// Unset values still get defaults.
	if cfg.Sweep.Window != 15*time.Minute {
		t.Errorf("Sweep.Window = %v, want the 15m default", cfg.Sweep.Window)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
[auth]
client_id = "file-client"
client_secret = "file-secret"
`)
	t.Setenv(EnvClientID, "env-client")
	t.Setenv(EnvTenant, "env-tenant")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.ClientID != "env-client" {
		t.Errorf("ClientID = %q, env must win over the file", cfg.Auth.ClientID)
	}
	if cfg.Auth.ClientSecret != "file-secret" {
		t.Errorf("ClientSecret = %q, file value must survive when env unset", cfg.Auth.ClientSecret)
	}
	if cfg.Auth.Tenant != "env-tenant" {
		t.Errorf("Tenant = %q", cfg.Auth.Tenant)
	}
}

func TestLoad_MissingFileIsEnvOnly(t *testing.T) {
	t.Setenv(EnvClientID, "env-client")
	t.Setenv(EnvDatabasePath, "/tmp/env-tokens.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("a missing file must not error: %v", err)
	}
	if cfg.Auth.ClientID != "env-client" {
		t.Errorf("ClientID = %q", cfg.Auth.ClientID)
	}
	if cfg.Database.Path != "/tmp/env-tokens.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfigFile(t, `[auth`)

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path == "" {
		t.Error("Database.Path should default to a writable location")
	}
	if cfg.Sweep.Window != 15*time.Minute {
		t.Errorf("Sweep.Window = %v", cfg.Sweep.Window)
	}
	if cfg.Sweep.Concurrency != 4 {
		t.Errorf("Sweep.Concurrency = %d", cfg.Sweep.Concurrency)
	}
}
