package es

import "fmt"

// ExpectedVersion declares the expected state of a stream for optimistic
// concurrency control during append.
type ExpectedVersion struct {
	value int64
}

const (
	// expectedVersionAny indicates no version check should be performed
	expectedVersionAny = -1
	// expectedVersionNoStream indicates the stream must not exist
	expectedVersionNoStream = -2
	// expectedVersionStreamExists indicates the stream must already exist
	expectedVersionStreamExists = -3
)

// Any returns an ExpectedVersion that skips version validation.
// Use this when you don't need optimistic concurrency control.
func Any() ExpectedVersion {
	return ExpectedVersion{value: expectedVersionAny}
}

// NoStream returns an ExpectedVersion that enforces the stream must not exist.
// Use this when starting a new stream to ensure it doesn't already exist.
func NoStream() ExpectedVersion {
	return ExpectedVersion{value: expectedVersionNoStream}
}

// StreamExists returns an ExpectedVersion that enforces the stream must
// already have at least one event, at whatever version it currently is.
func StreamExists() ExpectedVersion {
	return ExpectedVersion{value: expectedVersionStreamExists}
}

// Exact returns an ExpectedVersion that enforces the stream must be at
// exactly the specified version. Use this for normal command handling with
// optimistic concurrency control. The version must be non-negative.
func Exact(version int64) ExpectedVersion {
	if version < 0 {
		panic(fmt.Sprintf("exact version must be non-negative, got %d", version))
	}
	return ExpectedVersion{value: version}
}

// IsAny returns true if this is an "Any" expected version (no version check).
func (ev ExpectedVersion) IsAny() bool {
	return ev.value == expectedVersionAny
}

// IsNoStream returns true if this is a "NoStream" expected version.
func (ev ExpectedVersion) IsNoStream() bool {
	return ev.value == expectedVersionNoStream
}

// IsStreamExists returns true if this is a "StreamExists" expected version.
func (ev ExpectedVersion) IsStreamExists() bool {
	return ev.value == expectedVersionStreamExists
}

// IsExact returns true if this is an "Exact" expected version.
func (ev ExpectedVersion) IsExact() bool {
	return ev.value >= 0
}

// Value returns the exact version number if this is an Exact expected version.
// Returns 0 for Any, NoStream and StreamExists.
func (ev ExpectedVersion) Value() int64 {
	if ev.value >= 0 {
		return ev.value
	}
	return 0
}

// String returns a string representation of the ExpectedVersion.
func (ev ExpectedVersion) String() string {
	switch {
	case ev.IsAny():
		return "Any"
	case ev.IsNoStream():
		return "NoStream"
	case ev.IsStreamExists():
		return "StreamExists"
	default:
		return fmt.Sprintf("Exact(%d)", ev.value)
	}
}
