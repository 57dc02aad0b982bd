// Package es provides core types for the event-sourced document store.
package es

import (
	"time"

	"github.com/google/uuid"
)

// Event represents an immutable domain event.
// Events are value objects without identity until persisted.
type Event struct {
	// RecordedAt is when the event was recorded
	RecordedAt time.Time

	// EventType identifies the type of event. It doubles as the payload
	// discriminator used by a TypeRegistry at read time.
	EventType string

	// Payload contains the event data.
	// Stored as BYTEA for flexibility - allows any serialization format.
	Payload []byte

	// Metadata contains additional event metadata as JSON
	Metadata []byte

	// EventID is a unique identifier for this event
	EventID uuid.UUID
}

// PersistedEvent is an event that has been durably appended to a stream.
// Stream identity, per-stream version and global position are assigned by
// the event store and are read-only afterwards.
type PersistedEvent struct {
	Event

	// StreamID identifies the stream this event belongs to
	StreamID string

	// AggregateType is the aggregate-type tag of the owning stream
	AggregateType string

	// Version is the 1-based per-stream version of this event.
	// Versions are gapless and strictly increasing within a stream.
	Version int64

	// GlobalPosition orders events across all streams.
	// Assigned by the store upon persistence, monotonically increasing.
	GlobalPosition int64
}

// Stream is an ordered slice of persisted events sharing one identity.
type Stream struct {
	StreamID      string
	AggregateType string
	Events        []PersistedEvent
}

// Version returns the version of the last event in the stream,
// or 0 for an empty stream.
func (s Stream) Version() int64 {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[len(s.Events)-1].Version
}

// IsEmpty returns true if the stream has no events.
func (s Stream) IsEmpty() bool {
	return len(s.Events) == 0
}

// Len returns the number of events in the stream.
func (s Stream) Len() int {
	return len(s.Events)
}
