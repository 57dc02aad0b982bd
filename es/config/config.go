// Package config loads store configuration from a YAML file and environment
// variables.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/inkwell-db/inkwell/es/schema"
)

// Config is the top-level configuration handed to the store at startup.
// The store itself only consumes the resolved values; parsing and
// validation happen here, once, before any storage handle is created.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Schema   SchemaConfig   `koanf:"schema"`
	Tables   TablesConfig   `koanf:"tables"`
}

// DatabaseConfig describes the PostgreSQL connection.
type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

// SchemaConfig selects the schema-management mode.
type SchemaConfig struct {
	// Mode is one of: none, create-only, create-or-update, create-all.
	Mode string `koanf:"mode"`
}

// ParsedMode returns the schema mode enum for the configured string.
func (s SchemaConfig) ParsedMode() (schema.Mode, error) {
	return schema.ParseMode(s.Mode)
}

// TablesConfig names the store's tables.
type TablesConfig struct {
	Events      string `koanf:"events"`
	StreamHeads string `koanf:"stream_heads"`
	Documents   string `koanf:"documents"`
	Checkpoints string `koanf:"checkpoints"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}
	if _, err := c.Schema.ParsedMode(); err != nil {
		return fmt.Errorf("invalid schema.mode: %w", err)
	}
	for name, table := range map[string]string{
		"tables.events":       c.Tables.Events,
		"tables.stream_heads": c.Tables.StreamHeads,
		"tables.documents":    c.Tables.Documents,
		"tables.checkpoints":  c.Tables.Checkpoints,
	} {
		if strings.TrimSpace(table) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

// Load parses config from an optional file plus INKWELL_-prefixed
// environment variables and validates it. Env keys map double underscores
// to dots: INKWELL_DATABASE__DSN sets database.dsn.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"database.dsn":            "",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"schema.mode":             "create-or-update",
		"tables.events":           "events",
		"tables.stream_heads":     "stream_heads",
		"tables.documents":        "documents",
		"tables.checkpoints":      "projection_checkpoints",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("INKWELL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "INKWELL_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
