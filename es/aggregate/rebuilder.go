// Package aggregate rebuilds current-state objects by folding a stream's
// events through registered transition functions.
package aggregate

import (
	"context"
	"fmt"

	"github.com/inkwell-db/inkwell/es"
	"github.com/inkwell-db/inkwell/es/store"
)

// TransitionFunc applies one event to the state, returning the new state.
// Transitions take the previous value and produce a new value; they must
// not retain or mutate the event.
type TransitionFunc[S any] func(state S, event es.PersistedEvent) (S, error)

// Rebuilder folds a stream of events into a state of type S.
//
// Transitions are registered per event type, resolved once at registration
// time rather than via runtime type inspection per event. Event types with
// no registered transition are skipped, so folds stay forward-compatible
// with event types added later. Rebuild is a pure function of the event
// sequence: replaying the same unchanged stream always yields the same
// state.
type Rebuilder[S any] struct {
	init        func() S
	transitions map[string]TransitionFunc[S]
}

// New creates a Rebuilder starting from the zero value of S.
func New[S any]() *Rebuilder[S] {
	return &Rebuilder[S]{
		init:        func() S { var zero S; return zero },
		transitions: make(map[string]TransitionFunc[S]),
	}
}

// Init overrides the initial state constructor.
func (r *Rebuilder[S]) Init(fn func() S) *Rebuilder[S] {
	r.init = fn
	return r
}

// On registers the transition for an event type. Registering the same type
// twice overwrites the previous transition.
func (r *Rebuilder[S]) On(eventType string, fn TransitionFunc[S]) *Rebuilder[S] {
	r.transitions[eventType] = fn
	return r
}

// Handles reports whether a transition is registered for the event type.
func (r *Rebuilder[S]) Handles(eventType string) bool {
	_, ok := r.transitions[eventType]
	return ok
}

// Rebuild replays the stream's events in version order through the
// registered transitions and returns the resulting state.
//
// This is the slow path: O(events in stream), no caching, always strongly
// consistent. Returns store.ErrStreamNotFound if the stream has no events.
// A transition error aborts the fold and is returned wrapped with the
// failing event's position.
func (r *Rebuilder[S]) Rebuild(ctx context.Context, tx es.DBTX, reader store.StreamReader, streamID string) (S, error) {
	state := r.init()

	it, err := reader.FetchStream(ctx, tx, streamID, 1, 0)
	if err != nil {
		return state, fmt.Errorf("failed to fetch stream %q: %w", streamID, err)
	}
	defer it.Close()

	var count int64
	for it.Next() {
		event := it.Event()
		count++

		fn, ok := r.transitions[event.EventType]
		if !ok {
			continue
		}

		state, err = fn(state, event)
		if err != nil {
			return state, fmt.Errorf("transition %q at version %d of stream %q: %w",
				event.EventType, event.Version, streamID, err)
		}
	}
	if err := it.Err(); err != nil {
		return state, fmt.Errorf("failed to read stream %q: %w", streamID, err)
	}

	if count == 0 {
		return state, fmt.Errorf("rebuild %q: %w", streamID, store.ErrStreamNotFound)
	}

	return state, nil
}

// Fold applies the registered transitions to an in-memory slice of events.
// Useful for testing folds and for replaying events already in hand.
func (r *Rebuilder[S]) Fold(events []es.PersistedEvent) (S, error) {
	state := r.init()
	for i := range events {
		fn, ok := r.transitions[events[i].EventType]
		if !ok {
			continue
		}
		var err error
		state, err = fn(state, events[i])
		if err != nil {
			return state, fmt.Errorf("transition %q at version %d: %w",
				events[i].EventType, events[i].Version, err)
		}
	}
	return state, nil
}
