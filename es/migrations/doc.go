// Package migrations generates SQL migration files for the event store's
// PostgreSQL schema, for users who manage migrations with their own tooling
// instead of the schema package's embedded migrations.
//
// Generated migrations cover the events, stream heads, documents and
// projection checkpoints tables with their indexes and constraints. Table
// names are configurable so several stores can share one database.
package migrations
