// Package schema resolves schema ids to the Avro schemas registered for them.
//
// Every meta attribute and message payload in the pipeline is encoded with a
// schema that lives in an external registry and is referenced only by its
// integer id. This package defines the resolution contract used by the
// payload codec, and provides storage backends and a caching resolver for it.
//
// Schemas are immutable once registered: an id always refers to the same
// definition. Stores reject attempts to register a different definition under
// an existing id.
//
// Storage backends:
//   - MemoryStore: in-process map, for tests and development
//   - RedisStore: Redis Hash, JSON encoded values
//   - MongoStore: one document per schema, keyed by id
//   - PostgresStore: one row per schema, caller supplies the driver
//
// Example:
//
//	store := schema.NewMemoryStore()
//	store.Set(ctx, &schema.Schema{ID: 42, Definition: def})
//
//	resolver := schema.NewCachingResolver(schema.NewStoreResolver(store))
//	s, err := resolver.Resolve(ctx, 42)
package schema

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hamba/avro/v2"
)

// ID identifies a schema in the registry.
type ID int

// String returns the decimal form of the id.
func (id ID) String() string {
	return strconv.Itoa(int(id))
}

// Valid reports whether the id can refer to a registered schema.
func (id ID) Valid() bool {
	return id > 0
}

// Schema is an Avro schema registered under an id.
type Schema struct {
	ID         ID        `json:"id"`
	Definition string    `json:"definition"`
	Namespace  string    `json:"namespace,omitempty"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Resolver resolves a schema id to its schema.
// Implementations must be safe for concurrent use.
type Resolver interface {
	// Resolve returns the schema registered under id.
	// Returns an error wrapping ErrSchemaNotFound if the id is unknown.
	Resolve(ctx context.Context, id ID) (*Schema, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, id ID) (*Schema, error)

// Resolve calls f(ctx, id).
func (f ResolverFunc) Resolve(ctx context.Context, id ID) (*Schema, error) {
	return f(ctx, id)
}

// Store abstracts schema storage.
type Store interface {
	// Get retrieves a schema by id.
	// Returns nil, nil if not found.
	Get(ctx context.Context, id ID) (*Schema, error)

	// Set registers a schema. Registering the same definition again is a
	// no-op; a different definition under an existing id fails with
	// ErrSchemaConflict.
	Set(ctx context.Context, schema *Schema) error

	// Delete removes a schema.
	Delete(ctx context.Context, id ID) error

	// List returns all schemas.
	List(ctx context.Context) ([]*Schema, error)

	// Close releases resources.
	Close() error
}

// Validate validates the schema fields.
func (s *Schema) Validate() error {
	if !s.ID.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidID, s.ID)
	}
	if s.Definition == "" {
		return ErrEmptyDefinition
	}
	return nil
}

// Clone creates a copy of the schema.
func (s *Schema) Clone() *Schema {
	clone := *s
	return &clone
}

// Parse parses the definition into an Avro schema.
// Returns an error wrapping ErrInvalidDefinition if the definition is not
// valid Avro.
func (s *Schema) Parse() (avro.Schema, error) {
	parsed, err := avro.Parse(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %d: %w", ErrInvalidDefinition, s.ID, err)
	}
	return parsed, nil
}

// register applies the shared Set rules against an existing entry.
// It returns the schema to store, or nil if nothing needs to be written.
func register(existing, incoming *Schema, now time.Time) (*Schema, error) {
	if existing != nil {
		if existing.Definition != incoming.Definition {
			return nil, fmt.Errorf("%w: schema %d", ErrSchemaConflict, incoming.ID)
		}
		return nil, nil
	}
	s := incoming.Clone()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	return s, nil
}
