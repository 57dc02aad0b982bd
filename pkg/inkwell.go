// Package inkwell provides an embedded event-sourced document store for Go
// applications.
//
// This package serves as the main entry point for the library.
// For the core functionality, see the es package and its subpackages:
//
//	es                   - Core types and interfaces
//	es/store             - Storage abstractions and error taxonomy
//	es/document          - Documents and query predicates
//	es/aggregate         - Stream folding into current state
//	es/projection        - Inline and catch-up read models
//	es/adapters/postgres - PostgreSQL implementation
//	es/schema            - Schema management modes
//	es/migrations        - Migration generation
//
// Quick Start:
//
//  1. Apply the schema:
//     schema.Apply(ctx, db, schema.ModeCreateOrUpdate, nil)
//
//  2. Create a store with inline projections and append events:
//     docs := postgres.NewDocumentStore(postgres.DefaultDocumentConfig())
//     engine := projection.NewEngine(docs, registrations...)
//     store := postgres.NewStore(postgres.DefaultStoreConfig(), postgres.WithProjections(engine))
//
//     tx, _ := db.BeginTx(ctx, nil)
//     version, err := store.AppendToStream(ctx, tx, streamID, "Account", es.NoStream(), events)
//     tx.Commit()
//
//  3. Read documents or rebuild aggregates:
//     doc, err := docs.Get(ctx, db, "AccountSummary", streamID)
//     state, err := rebuilder.Rebuild(ctx, db, store, streamID)
//
// See the examples directory for complete working examples.
package inkwell

// Version returns the current version of the library.
func Version() string {
	return "0.1.0-dev"
}
