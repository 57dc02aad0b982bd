// Package postgres provides the PostgreSQL adapter for the event log,
// stream registry, document store and catch-up projection processing.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/inkwell-db/inkwell/es"
	"github.com/inkwell-db/inkwell/es/projection"
	"github.com/inkwell-db/inkwell/es/store"
)

// StoreConfig contains configuration for the Postgres event store.
// Configuration is immutable after construction.
type StoreConfig struct {
	// Logger is an optional logger for observability.
	// If nil, logging is disabled (zero overhead).
	Logger es.Logger

	// EventsTable is the name of the events table
	EventsTable string

	// StreamHeadsTable is the name of the stream version tracking table
	StreamHeadsTable string
}

// DefaultStoreConfig returns the default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		EventsTable:      "events",
		StreamHeadsTable: "stream_heads",
	}
}

// Store is a PostgreSQL-backed event store implementation.
// It implements store.EventStore, store.StreamReader, store.EventReader
// and store.StreamRegistry.
type Store struct {
	config      StoreConfig
	projections *projection.Engine
	logger      es.Logger
}

// Option configures optional store behavior.
type Option func(*Store)

// WithProjections registers an inline projection engine. Every appended
// event is applied to the engine within the append transaction.
func WithProjections(engine *projection.Engine) Option {
	return func(s *Store) {
		s.projections = engine
	}
}

// NewStore creates a new Postgres event store with the given configuration.
func NewStore(config StoreConfig, opts ...Option) *Store {
	s := &Store{
		config: config,
		logger: config.Logger,
	}
	if s.logger == nil {
		s.logger = es.NoOpLogger{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendToStream implements store.EventStore.
//
// The stream_heads table gives an O(1) current-version lookup; the expected
// version is validated against it before any insert. The unique constraint
// on (stream_id, version) enforces optimistic concurrency under races: if
// another transaction commits between our version check and insert, the
// insert fails with a unique violation and the append surfaces
// store.ErrConcurrencyConflict without persisting anything.
func (s *Store) AppendToStream(ctx context.Context, tx es.DBTX, streamID, aggregateType string, expected es.ExpectedVersion, events []es.Event) (int64, error) {
	if len(events) == 0 {
		return 0, store.ErrNoEvents
	}

	currentVersion, exists, err := s.headVersion(ctx, tx, streamID)
	if err != nil {
		return 0, fmt.Errorf("failed to check current version of stream %q: %w", streamID, err)
	}

	switch {
	case expected.IsNoStream() && exists:
		return 0, fmt.Errorf("stream %q at version %d: %w", streamID, currentVersion, store.ErrStreamAlreadyExists)
	case expected.IsStreamExists() && !exists:
		return 0, fmt.Errorf("stream %q: %w", streamID, store.ErrStreamNotFound)
	case expected.IsExact() && expected.Value() != currentVersion:
		return 0, fmt.Errorf("stream %q: expected version %d, actual %d: %w",
			streamID, expected.Value(), currentVersion, store.ErrConcurrencyConflict)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (
			stream_id, aggregate_type, version,
			event_id, event_type, payload, metadata, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING global_position
	`, s.config.EventsTable)

	persisted := make([]es.PersistedEvent, len(events))
	for i := range events {
		version := currentVersion + int64(i) + 1

		var globalPos int64
		err := tx.QueryRowContext(ctx, insertQuery,
			streamID,
			aggregateType,
			version,
			events[i].EventID,
			events[i].EventType,
			events[i].Payload,
			events[i].Metadata,
			events[i].RecordedAt,
		).Scan(&globalPos)
		if err != nil {
			if IsUniqueViolation(err) {
				return 0, fmt.Errorf("stream %q at version %d: %w", streamID, version, store.ErrConcurrencyConflict)
			}
			return 0, fmt.Errorf("failed to insert event %d of stream %q: %w", i, streamID, err)
		}

		persisted[i] = es.PersistedEvent{
			Event:          events[i],
			StreamID:       streamID,
			AggregateType:  aggregateType,
			Version:        version,
			GlobalPosition: globalPos,
		}
	}

	newVersion := currentVersion + int64(len(events))
	upsertQuery := fmt.Sprintf(`
		INSERT INTO %s (stream_id, aggregate_type, version, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (stream_id)
		DO UPDATE SET version = $3, updated_at = NOW()
	`, s.config.StreamHeadsTable)

	if _, err := tx.ExecContext(ctx, upsertQuery, streamID, aggregateType, newVersion); err != nil {
		return 0, fmt.Errorf("failed to update stream head for %q: %w", streamID, err)
	}

	// Inline projections run in per-stream version order inside the same
	// transaction. A rule failure aborts the whole append.
	if s.projections != nil {
		for i := range persisted {
			if err := s.projections.Apply(ctx, tx, persisted[i]); err != nil {
				return 0, fmt.Errorf("inline projection failed for stream %q at version %d: %w",
					streamID, persisted[i].Version, err)
			}
		}
	}

	s.logger.Debug(ctx, "events appended",
		"stream_id", streamID,
		"aggregate_type", aggregateType,
		"count", len(events),
		"new_version", newVersion)

	return newVersion, nil
}

// GetVersion implements store.StreamRegistry.
func (s *Store) GetVersion(ctx context.Context, tx es.DBTX, streamID string) (int64, error) {
	version, exists, err := s.headVersion(ctx, tx, streamID)
	if err != nil {
		return 0, fmt.Errorf("failed to read version of stream %q: %w", streamID, err)
	}
	if !exists {
		return 0, fmt.Errorf("stream %q: %w", streamID, store.ErrStreamNotFound)
	}
	return version, nil
}

// StreamExists reports whether the stream has any events, without reading
// event bodies.
func (s *Store) StreamExists(ctx context.Context, tx es.DBTX, streamID string) (bool, error) {
	_, exists, err := s.headVersion(ctx, tx, streamID)
	if err != nil {
		return false, fmt.Errorf("failed to check stream %q: %w", streamID, err)
	}
	return exists, nil
}

func (s *Store) headVersion(ctx context.Context, tx es.DBTX, streamID string) (int64, bool, error) {
	query := fmt.Sprintf(`
		SELECT version
		FROM %s
		WHERE stream_id = $1
	`, s.config.StreamHeadsTable)

	var version int64
	err := tx.QueryRowContext(ctx, query, streamID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, true, nil
}

// FetchStream implements store.StreamReader. toVersion 0 reads to latest.
// The iterator is lazy: rows are decoded as the caller advances.
func (s *Store) FetchStream(ctx context.Context, tx es.DBTX, streamID string, fromVersion, toVersion int64) (store.EventIterator, error) {
	if fromVersion < 1 {
		fromVersion = 1
	}

	query := fmt.Sprintf(`
		SELECT
			global_position, stream_id, aggregate_type, version,
			event_id, event_type, payload, metadata, recorded_at
		FROM %s
		WHERE stream_id = $1 AND version >= $2 AND ($3 = 0 OR version <= $3)
		ORDER BY version ASC
	`, s.config.EventsTable)

	rows, err := tx.QueryContext(ctx, query, streamID, fromVersion, toVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream %q: %w", streamID, err)
	}

	return &streamIterator{rows: rows}, nil
}

// ReadStream fetches the whole stream into memory.
// Returns store.ErrStreamNotFound if the stream has no events.
func (s *Store) ReadStream(ctx context.Context, tx es.DBTX, streamID string) (es.Stream, error) {
	it, err := s.FetchStream(ctx, tx, streamID, 1, 0)
	if err != nil {
		return es.Stream{}, err
	}
	defer it.Close()

	stream := es.Stream{StreamID: streamID}
	for it.Next() {
		event := it.Event()
		stream.AggregateType = event.AggregateType
		stream.Events = append(stream.Events, event)
	}
	if err := it.Err(); err != nil {
		return es.Stream{}, fmt.Errorf("failed to read stream %q: %w", streamID, err)
	}
	if stream.IsEmpty() {
		return es.Stream{}, fmt.Errorf("stream %q: %w", streamID, store.ErrStreamNotFound)
	}
	return stream, nil
}

// ReadAll implements store.EventReader.
func (s *Store) ReadAll(ctx context.Context, tx es.DBTX, fromPosition int64, limit int) ([]es.PersistedEvent, error) {
	query := fmt.Sprintf(`
		SELECT
			global_position, stream_id, aggregate_type, version,
			event_id, event_type, payload, metadata, recorded_at
		FROM %s
		WHERE global_position > $1
		ORDER BY global_position ASC
		LIMIT $2
	`, s.config.EventsTable)

	rows, err := tx.QueryContext(ctx, query, fromPosition, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []es.PersistedEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// DeleteStream hard-deletes all events of a stream and its head row.
// Administrative operation, not part of the normal stream lifecycle.
// Projection documents derived from the stream are left in place.
func (s *Store) DeleteStream(ctx context.Context, tx es.DBTX, streamID string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE stream_id = $1`, s.config.EventsTable), streamID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete events of stream %q: %w", streamID, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted events: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE stream_id = $1`, s.config.StreamHeadsTable), streamID); err != nil {
		return 0, fmt.Errorf("failed to delete head of stream %q: %w", streamID, err)
	}

	s.logger.Info(ctx, "stream deleted", "stream_id", streamID, "events", deleted)
	return deleted, nil
}

func scanEvent(rows *sql.Rows) (es.PersistedEvent, error) {
	var e es.PersistedEvent
	err := rows.Scan(
		&e.GlobalPosition,
		&e.StreamID,
		&e.AggregateType,
		&e.Version,
		&e.EventID,
		&e.EventType,
		&e.Payload,
		&e.Metadata,
		&e.RecordedAt,
	)
	if err != nil {
		return es.PersistedEvent{}, fmt.Errorf("failed to scan event: %w", err)
	}
	return e, nil
}

// streamIterator adapts sql.Rows to store.EventIterator.
type streamIterator struct {
	rows    *sql.Rows
	current es.PersistedEvent
	err     error
}

func (it *streamIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	event, err := scanEvent(it.rows)
	if err != nil {
		it.err = err
		return false
	}
	it.current = event
	return true
}

func (it *streamIterator) Event() es.PersistedEvent {
	return it.current
}

func (it *streamIterator) Err() error {
	return it.err
}

func (it *streamIterator) Close() error {
	return it.rows.Close()
}

// IsUniqueViolation checks if an error is a PostgreSQL unique constraint
// violation. Exported for testing purposes.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}

	// Fallback: check error message for common patterns
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// Interface conformance
var (
	_ store.EventStore     = (*Store)(nil)
	_ store.StreamReader   = (*Store)(nil)
	_ store.EventReader    = (*Store)(nil)
	_ store.StreamRegistry = (*Store)(nil)
)
