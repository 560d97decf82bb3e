// Package config loads and validates the process configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/driftmark/driftmark/store/postgres"
)

// PersistenceConfig controls the write-behind flush loop.
type PersistenceConfig struct {
	IntervalMs int  `yaml:"interval_ms"`
	Auto       bool `yaml:"auto"`
}

// Interval returns the flush cadence as a duration.
func (c *PersistenceConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// BattleConfig controls the battle scheduler and engine.
type BattleConfig struct {
	TickIntervalMs      int     `yaml:"tick_interval_ms"`
	EngagementRange     float64 `yaml:"engagement_range"`
	MinTeleportDistance float64 `yaml:"min_teleport_distance"`
}

// TickInterval returns the scheduler cadence as a duration.
func (c *BattleConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// WorldConfig holds the dimensions used when creating a fresh world record.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// SQLiteConfig holds SQLite backend settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects and configures the durable store backend.
type StoreConfig struct {
	Driver   string           `yaml:"driver"` // "postgres" or "sqlite"
	Postgres *postgres.Config `yaml:"postgres"`
	SQLite   SQLiteConfig     `yaml:"sqlite"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the root configuration structure
type Config struct {
	Version     int               `yaml:"version"`
	Log         LogConfig         `yaml:"log"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Battle      BattleConfig      `yaml:"battle"`
	World       WorldConfig       `yaml:"world"`
	Store       StoreConfig       `yaml:"store"`
}

// DefaultConfig returns the configuration used when a field is omitted.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Log:     LogConfig{Level: "info"},
		Persistence: PersistenceConfig{
			IntervalMs: 30000,
			Auto:       true,
		},
		Battle: BattleConfig{
			TickIntervalMs:      1000,
			EngagementRange:     250,
			MinTeleportDistance: 500,
		},
		World: WorldConfig{
			Width:  10000,
			Height: 10000,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "driftmark.db"},
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}

	if c.Persistence.IntervalMs <= 0 {
		return fmt.Errorf("persistence interval_ms must be positive")
	}

	if c.Battle.TickIntervalMs <= 0 {
		return fmt.Errorf("battle tick_interval_ms must be positive")
	}
	if c.Battle.EngagementRange <= 0 {
		return fmt.Errorf("battle engagement_range must be positive")
	}
	if c.Battle.MinTeleportDistance <= 0 {
		return fmt.Errorf("battle min_teleport_distance must be positive")
	}

	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world dimensions must be positive")
	}

	switch c.Store.Driver {
	case "postgres":
		if c.Store.Postgres == nil {
			return fmt.Errorf("store driver postgres requires a postgres section")
		}
		if err := c.Store.Postgres.Validate(); err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store driver sqlite requires a path")
		}
	default:
		return fmt.Errorf("unsupported store driver: %q (postgres or sqlite)", c.Store.Driver)
	}

	// Teleporting the loser beyond the minimum distance must be satisfiable
	// somewhere on the map, or the fallback placement runs every time.
	if c.Battle.MinTeleportDistance >= c.World.Width && c.Battle.MinTeleportDistance >= c.World.Height {
		return fmt.Errorf("min_teleport_distance does not fit within the world dimensions")
	}

	return nil
}
