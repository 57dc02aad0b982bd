// Package projection maintains derived read-model documents from event
// streams, either inline within the append transaction or via a separate
// checkpointed catch-up process.
package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkwell-db/inkwell/es"
	"github.com/inkwell-db/inkwell/es/document"
	"github.com/inkwell-db/inkwell/es/store"
)

var (
	// ErrProjectionStopped indicates a catch-up projection was stopped due
	// to an error.
	ErrProjectionStopped = errors.New("projection stopped")
)

// Projection is the interface for catch-up (asynchronous) event handlers.
// Inline read models are declared with a Registration instead.
type Projection interface {
	// Name returns the unique name of this projection.
	// This name is used for checkpoint tracking.
	Name() string

	// Handle processes a single event within the processor's transaction.
	// Return an error to stop projection processing.
	Handle(ctx context.Context, tx es.DBTX, event es.PersistedEvent) error
}

// ProcessorRunner is implemented by adapter-specific catch-up processors.
type ProcessorRunner interface {
	Run(ctx context.Context, p Projection) error
}

// CreateFunc builds the initial document data when the first matching event
// for a document key arrives.
type CreateFunc func(event es.PersistedEvent) ([]byte, error)

// UpdateFunc takes the previous document data and an event and returns the
// new document data. Whole-value replacement: implementations decode,
// derive a new value and re-encode rather than patching in place.
type UpdateFunc func(data []byte, event es.PersistedEvent) ([]byte, error)

// KeyFunc derives the document key from an event. The default keys the
// document by stream ID, giving one document per stream.
type KeyFunc func(event es.PersistedEvent) string

// Registration declares an inline read model: the document type it
// maintains and the per-event-type creation and update rules.
//
// Rules are resolved into maps at registration time; dispatch at append
// time is a plain map lookup on the event type tag. Registrations are
// static configuration, built at startup and read-only afterwards.
type Registration struct {
	name    string
	docType string
	key     KeyFunc
	creates map[string]CreateFunc
	updates map[string]UpdateFunc
}

// New declares an inline read model producing documents of docType.
// The registration name identifies the projection in errors and logs.
func New(name, docType string) *Registration {
	return &Registration{
		name:    name,
		docType: docType,
		key:     func(event es.PersistedEvent) string { return event.StreamID },
		creates: make(map[string]CreateFunc),
		updates: make(map[string]UpdateFunc),
	}
}

// Name returns the registration name.
func (r *Registration) Name() string { return r.name }

// DocumentType returns the document type this registration maintains.
func (r *Registration) DocumentType() string { return r.docType }

// Key overrides how the document key is derived from an event.
func (r *Registration) Key(fn KeyFunc) *Registration {
	r.key = fn
	return r
}

// Creates registers the creation rule for an event type.
func (r *Registration) Creates(eventType string, fn CreateFunc) *Registration {
	r.creates[eventType] = fn
	return r
}

// Updates registers the update rule for an event type.
func (r *Registration) Updates(eventType string, fn UpdateFunc) *Registration {
	r.updates[eventType] = fn
	return r
}

// Creates registers a typed creation rule on r, using the codec to encode
// the produced document value.
func Creates[D any](r *Registration, codec es.Codec, eventType string, fn func(event es.PersistedEvent) (D, error)) *Registration {
	return r.Creates(eventType, func(event es.PersistedEvent) ([]byte, error) {
		doc, err := fn(event)
		if err != nil {
			return nil, err
		}
		data, err := codec.Marshal(doc)
		if err != nil {
			return nil, &es.SerializationError{TypeName: r.docType, Err: err}
		}
		return data, nil
	})
}

// Updates registers a typed update rule on r. The previous document data is
// decoded with the codec, the rule derives a new value, and the result is
// re-encoded.
func Updates[D any](r *Registration, codec es.Codec, eventType string, fn func(doc D, event es.PersistedEvent) (D, error)) *Registration {
	return r.Updates(eventType, func(data []byte, event es.PersistedEvent) ([]byte, error) {
		var doc D
		if err := codec.Unmarshal(data, &doc); err != nil {
			return nil, &es.SerializationError{TypeName: r.docType, Err: err}
		}
		next, err := fn(doc, event)
		if err != nil {
			return nil, err
		}
		out, err := codec.Marshal(next)
		if err != nil {
			return nil, &es.SerializationError{TypeName: r.docType, Err: err}
		}
		return out, nil
	})
}

// Engine applies inline registrations to appended events.
//
// The event store calls Apply once per appended event, in per-stream
// version order, within the append transaction. Any rule failure aborts
// the whole append: events are not persisted and no document is updated,
// so readers never observe events without their inline projections.
type Engine struct {
	docs   store.DocumentStore
	regs   []*Registration
	logger es.Logger
}

// NewEngine creates an engine writing documents through docs.
func NewEngine(docs store.DocumentStore, regs ...*Registration) *Engine {
	return &Engine{docs: docs, regs: regs, logger: es.NoOpLogger{}}
}

// WithLogger sets an optional logger and returns the engine.
func (e *Engine) WithLogger(logger es.Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Registrations returns the registered inline read models.
func (e *Engine) Registrations() []*Registration {
	return e.regs
}

// Apply runs every registration's matching rule for the event.
//
// For each registration: if no document exists for the derived key and a
// creation rule matches the event type, the document is created. If a
// document exists and an update rule matches, the rule derives the new data
// and the document is replaced. Event types matching neither rule are
// ignored, as is an update rule firing for a key that was never created.
//
// Document writes inside the append transaction skip the version-token
// check: the engine is the only writer within the transaction, and the
// append's expected-version check already serializes writers per stream.
func (e *Engine) Apply(ctx context.Context, tx es.DBTX, event es.PersistedEvent) error {
	for _, reg := range e.regs {
		if err := e.applyOne(ctx, tx, reg, event); err != nil {
			return fmt.Errorf("projection %q: %w", reg.name, err)
		}
	}
	return nil
}

func (e *Engine) applyOne(ctx context.Context, tx es.DBTX, reg *Registration, event es.PersistedEvent) error {
	create, hasCreate := reg.creates[event.EventType]
	update, hasUpdate := reg.updates[event.EventType]
	if !hasCreate && !hasUpdate {
		return nil
	}

	key := reg.key(event)

	doc, err := e.docs.Get(ctx, tx, reg.docType, key)
	switch {
	case errors.Is(err, store.ErrDocumentNotFound):
		if !hasCreate {
			// No creation rule fired for this key yet; nothing to update.
			e.logger.Debug(ctx, "update rule skipped, document absent",
				"projection", reg.name,
				"doc_type", reg.docType,
				"doc_id", key,
				"event_type", event.EventType)
			return nil
		}
		data, err := create(event)
		if err != nil {
			return fmt.Errorf("creation rule for %q: %w", event.EventType, err)
		}
		if _, err := e.docs.Put(ctx, tx, reg.docType, key, data, document.NoToken); err != nil {
			return fmt.Errorf("failed to create document %q/%q: %w", reg.docType, key, err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("failed to load document %q/%q: %w", reg.docType, key, err)

	default:
		if !hasUpdate {
			return nil
		}
		data, err := update(doc.Data, event)
		if err != nil {
			return fmt.Errorf("update rule for %q: %w", event.EventType, err)
		}
		if _, err := e.docs.Put(ctx, tx, reg.docType, key, data, document.NoToken); err != nil {
			return fmt.Errorf("failed to update document %q/%q: %w", reg.docType, key, err)
		}
		return nil
	}
}
