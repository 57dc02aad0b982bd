package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkwell-db/inkwell/es/schema"
)

func TestLoad_DefaultsWithEnvDSN(t *testing.T) {
	t.Setenv("INKWELL_DATABASE__DSN", "postgres://localhost:5432/inkwell?sslmode=disable")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "postgres://localhost:5432/inkwell?sslmode=disable", cfg.Database.DSN)
	require.Equal(t, 25, cfg.Database.MaxOpenConns)
	require.Equal(t, 25, cfg.Database.MaxIdleConns)
	require.Equal(t, "create-or-update", cfg.Schema.Mode)
	require.Equal(t, "events", cfg.Tables.Events)
	require.Equal(t, "stream_heads", cfg.Tables.StreamHeads)
	require.Equal(t, "documents", cfg.Tables.Documents)
	require.Equal(t, "projection_checkpoints", cfg.Tables.Checkpoints)

	mode, err := cfg.Schema.ParsedMode()
	require.NoError(t, err)
	require.Equal(t, schema.ModeCreateOrUpdate, mode)
}

func TestLoad_MissingDSN(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "database.dsn is required")
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
database:
  dsn: postgres://db:5432/app
  max_open_conns: 10
schema:
  mode: create-only
tables:
  events: app_events
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "postgres://db:5432/app", cfg.Database.DSN)
	require.Equal(t, 10, cfg.Database.MaxOpenConns)
	// File values merge over defaults.
	require.Equal(t, 25, cfg.Database.MaxIdleConns)
	require.Equal(t, "create-only", cfg.Schema.Mode)
	require.Equal(t, "app_events", cfg.Tables.Events)
	require.Equal(t, "stream_heads", cfg.Tables.StreamHeads)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
database:
  dsn: postgres://db:5432/app
schema:
  mode: create-only
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	t.Setenv("INKWELL_SCHEMA__MODE", "none")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "none", cfg.Schema.Mode)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load config file")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{DSN: "postgres://db", MaxOpenConns: 5, MaxIdleConns: 5},
			Schema:   SchemaConfig{Mode: "none"},
			Tables: TablesConfig{
				Events:      "events",
				StreamHeads: "stream_heads",
				Documents:   "documents",
				Checkpoints: "projection_checkpoints",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"blank dsn", func(c *Config) { c.Database.DSN = "  " }, "database.dsn is required"},
		{"zero open conns", func(c *Config) { c.Database.MaxOpenConns = 0 }, "max_open_conns"},
		{"zero idle conns", func(c *Config) { c.Database.MaxIdleConns = -1 }, "max_idle_conns"},
		{"bad schema mode", func(c *Config) { c.Schema.Mode = "sometimes" }, "invalid schema.mode"},
		{"blank table", func(c *Config) { c.Tables.Documents = "" }, "tables.documents is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
