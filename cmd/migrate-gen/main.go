// Command migrate-gen generates SQL migration files for the event store.
//
// Usage:
//
//	go run github.com/inkwell-db/inkwell/cmd/migrate-gen -output migrations -filename init.sql
//
// Or with go generate:
//
//	//go:generate go run github.com/inkwell-db/inkwell/cmd/migrate-gen -output migrations
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/inkwell-db/inkwell/es/migrations"
)

func main() {
	var (
		outputFolder     = flag.String("output", "migrations", "Output folder for migration file")
		outputFilename   = flag.String("filename", "", "Output filename (default: timestamp-based)")
		eventsTable      = flag.String("events-table", "events", "Name of events table")
		streamHeadsTable = flag.String("stream-heads-table", "stream_heads", "Name of stream heads table")
		documentsTable   = flag.String("documents-table", "documents", "Name of documents table")
		checkpointsTable = flag.String("checkpoints-table", "projection_checkpoints", "Name of checkpoints table")
	)

	flag.Parse()

	config := migrations.DefaultConfig()
	config.OutputFolder = *outputFolder
	config.EventsTable = *eventsTable
	config.StreamHeadsTable = *streamHeadsTable
	config.DocumentsTable = *documentsTable
	config.CheckpointsTable = *checkpointsTable

	if *outputFilename != "" {
		config.OutputFilename = *outputFilename
	}

	if err := migrations.GeneratePostgres(&config); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated migration: %s/%s\n", config.OutputFolder, config.OutputFilename)
}
