package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config configures migration generation.
type Config struct {
	// OutputFolder is the directory where the migration file will be written
	OutputFolder string

	// OutputFilename is the name of the migration file
	OutputFilename string

	// EventsTable is the name of the events table
	EventsTable string

	// StreamHeadsTable is the name of the stream version tracking table
	StreamHeadsTable string

	// DocumentsTable is the name of the documents table
	DocumentsTable string

	// CheckpointsTable is the name of the projection checkpoints table
	CheckpointsTable string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	timestamp := time.Now().Format("20060102150405")
	return Config{
		OutputFolder:     "migrations",
		OutputFilename:   fmt.Sprintf("%s_init_event_store.sql", timestamp),
		EventsTable:      "events",
		StreamHeadsTable: "stream_heads",
		DocumentsTable:   "documents",
		CheckpointsTable: "projection_checkpoints",
	}
}

// GeneratePostgres generates a PostgreSQL migration file.
func GeneratePostgres(config *Config) error {
	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	sql := generatePostgresSQL(config)

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}

func generatePostgresSQL(config *Config) string {
	return fmt.Sprintf(`-- Event Store Infrastructure Migration
-- Generated: %s

-- Events table stores all domain events in append-only fashion
CREATE TABLE IF NOT EXISTS %s (
    global_position BIGSERIAL PRIMARY KEY,
    stream_id TEXT NOT NULL,
    aggregate_type TEXT NOT NULL,
    version BIGINT NOT NULL,
    event_id UUID NOT NULL UNIQUE,
    event_type TEXT NOT NULL,
    payload BYTEA NOT NULL,
    metadata JSONB,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    -- Ensure version uniqueness per stream
    UNIQUE (stream_id, version)
);

-- Index for stream reads
CREATE INDEX IF NOT EXISTS idx_%s_stream
    ON %s (stream_id, version);

-- Index for event type queries
CREATE INDEX IF NOT EXISTS idx_%s_event_type
    ON %s (event_type, global_position);

-- Stream heads table tracks the current version of each stream
-- Provides O(1) version lookup for event append operations
CREATE TABLE IF NOT EXISTS %s (
    stream_id TEXT PRIMARY KEY,
    aggregate_type TEXT NOT NULL,
    version BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Documents table stores current-state documents keyed by (type, id)
-- version_token changes on every successful write
CREATE TABLE IF NOT EXISTS %s (
    doc_type TEXT NOT NULL,
    doc_id TEXT NOT NULL,
    data JSONB NOT NULL,
    version_token UUID NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (doc_type, doc_id)
);

-- Index for maintenance queries
CREATE INDEX IF NOT EXISTS idx_%s_updated
    ON %s (updated_at);

-- Projection checkpoints table tracks progress of each catch-up projection
CREATE TABLE IF NOT EXISTS %s (
    projection_name TEXT PRIMARY KEY,
    last_global_position BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`,
		time.Now().Format(time.RFC3339),
		config.EventsTable,
		config.EventsTable, config.EventsTable,
		config.EventsTable, config.EventsTable,
		config.StreamHeadsTable,
		config.DocumentsTable,
		config.DocumentsTable, config.DocumentsTable,
		config.CheckpointsTable,
	)
}
