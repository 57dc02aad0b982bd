package projection

import "github.com/inkwell-db/inkwell/es"

// ProcessorConfig configures a catch-up projection processor.
type ProcessorConfig struct {
	// Logger is an optional logger for observability.
	// If nil, logging is disabled.
	Logger es.Logger

	// CheckpointsTable is the name of the checkpoints table
	CheckpointsTable string

	// BatchSize is the number of events to read per batch
	BatchSize int
}

// DefaultProcessorConfig returns the default configuration.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		CheckpointsTable: "projection_checkpoints",
		BatchSize:        100,
	}
}
