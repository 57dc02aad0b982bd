// Package es provides core infrastructure for an embedded event-sourced
// document store.
//
// # Overview
//
// This package defines the fundamental types and interfaces:
//   - Event / PersistedEvent: immutable domain events
//   - Stream: an ordered sequence of events sharing one identity
//   - ExpectedVersion: append-time concurrency expectations
//   - DBTX: database transaction abstraction
//   - Codec / TypeRegistry: pluggable payload serialization
//
// Storage interfaces live in the store package, the PostgreSQL
// implementation in adapters/postgres, stream folding in aggregate,
// and read-model maintenance in projection.
//
// # Design Philosophy
//
// Clean Architecture: Core interfaces are database-agnostic. Infrastructure
// concerns (like PostgreSQL) are isolated in adapter packages.
//
// Transaction Control: The library uses DBTX instead of managing
// transactions. This gives you full control over transaction boundaries and
// is what makes inline projections possible: appending events and updating
// every derived document happen against the same *sql.Tx, so they commit or
// roll back as one unit.
//
// Immutability: Events are value objects. They don't have identity until
// persisted and assigned a version and global position by the event store.
//
// # Quick Start
//
// 1. Apply the schema:
//
//	err := schema.Apply(ctx, db, schema.ModeCreateOrUpdate, logger)
//
// 2. Register inline projections and create a store:
//
//	docs := postgres.NewDocumentStore(postgres.DefaultDocumentConfig())
//	engine := projection.NewEngine(docs, accountSummary)
//	store := postgres.NewStore(postgres.DefaultStoreConfig(), postgres.WithProjections(engine))
//
// 3. Append events:
//
//	tx, _ := db.BeginTx(ctx, nil)
//	defer tx.Rollback()
//
//	version, err := store.AppendToStream(ctx, tx, accountID, "Account", es.NoStream(), events)
//	if err != nil {
//	    return err
//	}
//	tx.Commit()
//
// 4. Read back state, either from a projected document (fast):
//
//	doc, err := docs.Get(ctx, db, "AccountSummary", accountID)
//
// or by folding the stream from scratch (slow, always consistent):
//
//	account, err := rebuilder.Rebuild(ctx, db, store, accountID)
//
// # Optimistic Concurrency
//
// Appends declare an ExpectedVersion (Any, NoStream, StreamExists or
// Exact(n)). A mismatch surfaces as store.ErrConcurrencyConflict before any
// event is written. Under concurrent appends the database unique constraint
// on (stream_id, version) backs the same guarantee. Document writes use a
// version-token compare-and-swap with the same error. The library never
// retries a conflicting write; retry discipline belongs to the caller, who
// must re-read state before trying again.
//
// # Projections
//
// Inline projections run inside the append transaction: every registered
// rule sees each event in per-stream version order, and a rule failure
// aborts the whole append. Catch-up projections process the global event
// sequence in batches with checkpoint-based resumption; see the projection
// package.
//
// # Database Schema
//
// Four tables: an append-only events table (BIGSERIAL global_position,
// UNIQUE (stream_id, version)), a stream_heads table for O(1) version
// lookups, a documents table keyed by (doc_type, doc_id) with a
// version_token column, and projection_checkpoints for catch-up progress.
package es
