package es

import (
	"encoding/json"
	"fmt"
)

// Codec serializes event and document payloads. The store itself treats
// payloads as opaque bytes; a codec is only consulted at the edges, when
// folding events into state or when projection rules need typed values.
type Codec interface {
	// Marshal encodes a value into payload bytes.
	Marshal(v interface{}) ([]byte, error)

	// Unmarshal decodes payload bytes into the given value.
	Unmarshal(data []byte, v interface{}) error

	// ContentType describes the encoding, e.g. "application/json".
	ContentType() string
}

// JSONCodec is the default codec, encoding payloads as JSON.
type JSONCodec struct{}

// Marshal implements Codec.
func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements Codec.
func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// ContentType implements Codec.
func (JSONCodec) ContentType() string {
	return "application/json"
}

// SerializationError reports a payload that could not be decoded, either
// because its type discriminator is unknown or because the codec rejected
// the bytes. It is fatal for the single record involved and must not abort
// unrelated operations.
type SerializationError struct {
	TypeName string
	Err      error
}

// Error implements error.
func (e *SerializationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("serialization error for type %q", e.TypeName)
	}
	return fmt.Sprintf("serialization error for type %q: %v", e.TypeName, e.Err)
}

// Unwrap returns the underlying codec error, if any.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// TypeRegistry resolves event type discriminators to payload constructors.
// It is populated once at startup and read-only afterwards, so lookups
// need no synchronization.
type TypeRegistry struct {
	factories map[string]func() interface{}
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{factories: make(map[string]func() interface{})}
}

// Register associates a type name with a constructor for its payload value.
// The constructor must return a pointer for the codec to unmarshal into.
// Registering the same name twice overwrites the previous constructor.
func (r *TypeRegistry) Register(name string, factory func() interface{}) {
	r.factories[name] = factory
}

// New constructs an empty payload value for the given type name.
// Returns a SerializationError for unknown names.
func (r *TypeRegistry) New(name string) (interface{}, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, &SerializationError{TypeName: name}
	}
	return factory(), nil
}

// Decode resolves the type name and unmarshals the payload with the codec.
// Codec failures are wrapped in a SerializationError carrying the type name.
func (r *TypeRegistry) Decode(codec Codec, name string, payload []byte) (interface{}, error) {
	v, err := r.New(name)
	if err != nil {
		return nil, err
	}
	if err := codec.Unmarshal(payload, v); err != nil {
		return nil, &SerializationError{TypeName: name, Err: err}
	}
	return v, nil
}
