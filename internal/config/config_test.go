package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Auth.SweepSchedule != "@every 10m" {
		t.Errorf("SweepSchedule = %q", cfg.Auth.SweepSchedule)
	}
	if cfg.Server.TrustProxy {
		t.Error("TrustProxy enabled by default")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: "9090"
  host: 127.0.0.1
auth:
  session_ttl_hours: 2
storage:
  driver: badger
  badger_path: /tmp/catalog
seed:
  sources:
    - ./seed/products.jsonl
log_level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("SEED_SOURCES", "s3://bucket/a.jsonl.gz, gs://bucket/b.jsonl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Port = %q, want env override 7070", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want value from file", cfg.Server.Host)
	}
	if !cfg.Server.TrustProxy {
		t.Error("TrustProxy = false, want env override true")
	}
	if cfg.Auth.SessionTTLHours != 2 {
		t.Errorf("SessionTTLHours = %d, want 2", cfg.Auth.SessionTTLHours)
	}
	if cfg.Auth.RatePerMinute != 20 {
		t.Errorf("RatePerMinute = %d, want default 20", cfg.Auth.RatePerMinute)
	}
	if cfg.Storage.Driver != "badger" || cfg.Storage.BadgerPath != "/tmp/catalog" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if len(cfg.Seed.Sources) != 2 || cfg.Seed.Sources[1] != "gs://bucket/b.jsonl" {
		t.Errorf("Seed.Sources = %v", cfg.Seed.Sources)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.Server.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, true},
		{"postgres without url", func(c *Config) { c.Storage.Driver = "postgres" }, true},
		{"postgres with url", func(c *Config) {
			c.Storage.Driver = "postgres"
			c.Storage.DatabaseURL = "postgres://localhost/catalog"
		}, false},
		{"admin email without password", func(c *Config) { c.Auth.AdminEmail = "a@b.c" }, true},
		{"zero rate", func(c *Config) { c.Auth.RatePerMinute = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
