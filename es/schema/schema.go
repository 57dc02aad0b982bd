// Package schema manages the database schema for the store's default table
// layout using embedded migrations.
package schema

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/inkwell-db/inkwell/es"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Mode selects how much schema management the store performs at startup.
type Mode int

const (
	// ModeNone applies nothing; the schema is managed externally.
	ModeNone Mode = iota

	// ModeCreateOnly applies migrations only when no schema version exists
	// yet; an already-initialized database is left untouched.
	ModeCreateOnly

	// ModeCreateOrUpdate applies all pending migrations.
	ModeCreateOrUpdate

	// ModeCreateAll tears down the managed tables and recreates them from
	// scratch. Destroys all stored events and documents.
	ModeCreateAll
)

var modeNames = map[Mode]string{
	ModeNone:           "none",
	ModeCreateOnly:     "create-only",
	ModeCreateOrUpdate: "create-or-update",
	ModeCreateAll:      "create-all",
}

// String returns the configuration name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	for mode, name := range modeNames {
		if name == s {
			return mode, nil
		}
	}
	return ModeNone, fmt.Errorf("unknown schema mode %q (must be none, create-only, create-or-update or create-all)", s)
}

// Apply brings the database schema to the state the mode asks for.
// A nil logger disables logging.
func Apply(ctx context.Context, db *sql.DB, mode Mode, logger es.Logger) error {
	if logger == nil {
		logger = es.NoOpLogger{}
	}
	if mode == ModeNone {
		logger.Debug(ctx, "schema management disabled")
		return nil
	}

	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	initialized := !errors.Is(err, migrate.ErrNilVersion)

	if dirty {
		logger.Info(ctx, "recovering interrupted migration", "version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to recover dirty migration state at version %d: %w", version, err)
		}
	}

	switch mode {
	case ModeCreateOnly:
		if initialized {
			logger.Debug(ctx, "schema already initialized, skipping", "version", version)
			return nil
		}
		return up(ctx, m, logger)

	case ModeCreateOrUpdate:
		return up(ctx, m, logger)

	case ModeCreateAll:
		if initialized {
			logger.Info(ctx, "dropping managed tables", "version", version)
			if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to tear down schema: %w", err)
			}
		}
		return up(ctx, m, logger)

	default:
		return fmt.Errorf("unsupported schema mode %v", mode)
	}
}

func up(ctx context.Context, m *migrate.Migrate, logger es.Logger) error {
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug(ctx, "schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get updated migration version: %w", err)
	}
	logger.Info(ctx, "schema migrations applied", "version", version)
	return nil
}
