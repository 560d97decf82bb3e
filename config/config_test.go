package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
version: 1
log:
  level: debug
persistence:
  interval_ms: 5000
  auto: true
battle:
  tick_interval_ms: 250
  engagement_range: 300
  min_teleport_distance: 800
world:
  width: 20000
  height: 15000
store:
  driver: postgres
  postgres:
    host: db.internal
    port: 5432
    user: driftmark
    password: secret
    database: driftmark
    sslmode: require
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Persistence.Interval() != 5*time.Second {
		t.Errorf("Persistence.Interval() = %v, want 5s", cfg.Persistence.Interval())
	}
	if cfg.Battle.TickInterval() != 250*time.Millisecond {
		t.Errorf("Battle.TickInterval() = %v, want 250ms", cfg.Battle.TickInterval())
	}
	if cfg.Store.Postgres.Host != "db.internal" {
		t.Errorf("Postgres.Host = %q, want db.internal", cfg.Store.Postgres.Host)
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
version: 1
store:
  driver: sqlite
  sqlite:
    path: /tmp/driftmark-test.db
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Persistence.IntervalMs != 30000 {
		t.Errorf("Persistence.IntervalMs = %d, want default 30000", cfg.Persistence.IntervalMs)
	}
	if cfg.Battle.EngagementRange != 250 {
		t.Errorf("Battle.EngagementRange = %v, want default 250", cfg.Battle.EngagementRange)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatalf("LoadConfig should fail for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad version", func(c *Config) { c.Version = 2 }},
		{"zero flush interval", func(c *Config) { c.Persistence.IntervalMs = 0 }},
		{"zero tick interval", func(c *Config) { c.Battle.TickIntervalMs = 0 }},
		{"zero engagement range", func(c *Config) { c.Battle.EngagementRange = 0 }},
		{"zero teleport distance", func(c *Config) { c.Battle.MinTeleportDistance = 0 }},
		{"zero world width", func(c *Config) { c.World.Width = 0 }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "dynamo" }},
		{"postgres without section", func(c *Config) { c.Store.Driver = "postgres"; c.Store.Postgres = nil }},
		{"sqlite without path", func(c *Config) { c.Store.SQLite.Path = "" }},
		{"teleport distance exceeds world", func(c *Config) {
			c.Battle.MinTeleportDistance = 50000
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() should fail for %s", tc.name)
			}
		})
	}
}
