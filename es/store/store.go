// Package store provides storage abstractions and the shared error taxonomy.
package store

import (
	"context"
	"errors"

	"github.com/inkwell-db/inkwell/es"
	"github.com/inkwell-db/inkwell/es/document"
)

var (
	// ErrConcurrencyConflict indicates an expected-version mismatch on event
	// append or a stale version token on document put. Recoverable: reload
	// state and retry, or abort. The library itself never retries.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrStreamNotFound indicates the stream has no events.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamAlreadyExists indicates an append with NoStream hit a stream
	// that already has events.
	ErrStreamAlreadyExists = errors.New("stream already exists")

	// ErrDocumentNotFound indicates a read miss on the document store.
	// An absent-result sentinel, not a failure: check with errors.Is.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNoEvents indicates an attempt to append zero events.
	ErrNoEvents = errors.New("no events to append")
)

// EventStore defines the interface for appending events to streams.
type EventStore interface {
	// AppendToStream atomically appends events to the given stream within
	// the provided transaction and returns the stream's new version.
	//
	// The store assigns each event the next sequential per-stream version
	// and a global position. The expected version is validated first:
	//   - Exact(n): fails with ErrConcurrencyConflict unless the stream is
	//     at exactly version n
	//   - NoStream(): fails with ErrStreamAlreadyExists if any events exist
	//   - StreamExists(): fails with ErrStreamNotFound if none do
	//   - Any(): no check
	//
	// Registered inline projections run for each event in append order
	// within the same transaction; a projection failure aborts the append.
	// Returns ErrNoEvents if events is empty.
	AppendToStream(ctx context.Context, tx es.DBTX, streamID, aggregateType string, expected es.ExpectedVersion, events []es.Event) (int64, error)
}

// EventIterator is a lazy cursor over a stream's events. Usage mirrors
// sql.Rows: call Next until it returns false, then check Err.
type EventIterator interface {
	// Next advances to the next event, returning false when exhausted or on
	// error.
	Next() bool

	// Event returns the current event. Only valid after Next returned true.
	Event() es.PersistedEvent

	// Err returns the first error encountered during iteration.
	Err() error

	// Close releases the underlying cursor. Safe to call multiple times.
	Close() error
}

// StreamReader reads events of a single stream in version order.
type StreamReader interface {
	// FetchStream returns an iterator over the stream's events with
	// fromVersion <= version <= toVersion. toVersion 0 means latest.
	// Never yields events from other streams.
	FetchStream(ctx context.Context, tx es.DBTX, streamID string, fromVersion, toVersion int64) (EventIterator, error)
}

// EventReader reads events across all streams in global-position order.
// Used by catch-up projection processors.
type EventReader interface {
	// ReadAll reads up to limit events with global position greater than
	// fromPosition, ordered by global position ascending.
	ReadAll(ctx context.Context, tx es.DBTX, fromPosition int64, limit int) ([]es.PersistedEvent, error)
}

// StreamRegistry provides cheap existence and version lookups without
// replaying event bodies. It is written only inside the event store's
// append transaction, never independently.
type StreamRegistry interface {
	// GetVersion returns the stream's current version, or ErrStreamNotFound.
	GetVersion(ctx context.Context, tx es.DBTX, streamID string) (int64, error)
}

// DocumentStore provides key-addressed mutable storage with optimistic
// concurrency via version-token compare-and-swap.
type DocumentStore interface {
	// Get returns the document, or ErrDocumentNotFound.
	Get(ctx context.Context, tx es.DBTX, docType, id string) (document.Document, error)

	// Put stores the document data and returns the new version token.
	// An empty expectedToken (document.NoToken) disables the check and
	// upserts last-write-wins. Otherwise the write succeeds only if the
	// stored token equals expectedToken; a mismatch returns
	// ErrConcurrencyConflict and a missing document ErrDocumentNotFound.
	Put(ctx context.Context, tx es.DBTX, docType, id string, data []byte, expectedToken string) (string, error)

	// DeleteWhere bulk-deletes documents matching all predicates and
	// returns the number removed. Maintenance operation, not part of the
	// normal document lifecycle.
	DeleteWhere(ctx context.Context, tx es.DBTX, docType string, where []document.Predicate) (int64, error)

	// Query returns documents matching the query, in stable order.
	Query(ctx context.Context, tx es.DBTX, docType string, q document.Query) ([]document.Document, error)
}
