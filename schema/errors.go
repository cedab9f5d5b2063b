package schema

import "errors"

var (
	// ErrSchemaNotFound is returned when no schema is registered under an id.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrInvalidID is returned when a schema id is not positive.
	ErrInvalidID = errors.New("schema id must be > 0")

	// ErrEmptyDefinition is returned when a schema has no definition.
	ErrEmptyDefinition = errors.New("schema definition cannot be empty")

	// ErrInvalidDefinition is returned when a definition is not valid Avro.
	ErrInvalidDefinition = errors.New("invalid avro schema definition")

	// ErrSchemaConflict is returned when a different definition is registered
	// under an existing id.
	ErrSchemaConflict = errors.New("schema id already registered with a different definition")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("schema store is closed")
)
