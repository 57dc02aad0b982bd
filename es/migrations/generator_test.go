package migrations

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGeneratePostgres(t *testing.T) {
	config := &Config{
		OutputFolder:     filepath.Join(t.TempDir(), "migrations"),
		OutputFilename:   "001_init.sql",
		EventsTable:      "app_events",
		StreamHeadsTable: "app_stream_heads",
		DocumentsTable:   "app_documents",
		CheckpointsTable: "app_checkpoints",
	}

	if err := GeneratePostgres(config); err != nil {
		t.Fatalf("GeneratePostgres() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(config.OutputFolder, config.OutputFilename))
	if err != nil {
		t.Fatalf("failed to read generated migration: %v", err)
	}
	sql := string(data)

	for _, table := range []string{"app_events", "app_stream_heads", "app_documents", "app_checkpoints"} {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("generated SQL missing table %q", table)
		}
	}
	for _, fragment := range []string{
		"global_position BIGSERIAL PRIMARY KEY",
		"UNIQUE (stream_id, version)",
		"PRIMARY KEY (doc_type, doc_id)",
		"version_token UUID NOT NULL",
		"last_global_position BIGINT NOT NULL DEFAULT 0",
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("generated SQL missing %q", fragment)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.OutputFolder != "migrations" {
		t.Errorf("OutputFolder = %q", config.OutputFolder)
	}
	if !strings.HasSuffix(config.OutputFilename, "_init_event_store.sql") {
		t.Errorf("OutputFilename = %q", config.OutputFilename)
	}
	if config.EventsTable != "events" || config.StreamHeadsTable != "stream_heads" {
		t.Errorf("unexpected table defaults: %+v", config)
	}
}
