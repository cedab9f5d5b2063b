// Package payload binds one schema id to one Avro-encoded value.
//
// A Payload is built from either the encoded bytes or the decoded data and
// derives the other form on first use. The derived form is cached for the
// lifetime of the Payload, so repeated reads (logging, hashing, shipping)
// never repeat schema resolution or serialization.
//
// Usage:
//
//	// From decoded data, encoded on demand
//	p, err := payload.New(42, nil, payload.Data{"param1": "a", "param2": 1},
//	    payload.WithResolver(resolver))
//	b, err := p.Encoded(ctx)
//
//	// From wire bytes, decoded on demand
//	p, err := payload.New(42, b, nil, payload.WithResolver(resolver))
//	data, err := p.Decoded(ctx)
//
// In dry-run mode Encoded returns a textual rendering of the decoded data
// instead of Avro binary, so pipelines can be traced without a registry.
package payload

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/rbaliyan/datapipeline/schema"
)

// Data is the decoded form of a payload: an Avro record as a map of field
// names to values.
type Data = map[string]any

type options struct {
	resolver schema.Resolver
	backend  Backend
	dryRun   bool
}

// Option configures a Payload.
type Option func(*options)

// WithResolver sets the resolver used to look up the payload schema.
func WithResolver(r schema.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithBackend sets the Avro implementation (default: Default()).
func WithBackend(b Backend) Option {
	return func(o *options) {
		if b != nil {
			o.backend = b
		}
	}
}

// WithDryRun makes Encoded return a textual rendering of the decoded data
// instead of Avro binary.
func WithDryRun(enabled bool) Option {
	return func(o *options) {
		o.dryRun = enabled
	}
}

func newOptions(opts ...Option) *options {
	o := &options{backend: Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Payload is a schema id together with one logical value, held in encoded
// form, decoded form, or both once derived.
//
// Payload is safe for concurrent use. Each form is derived at most once;
// a failed derivation caches nothing and may be retried.
type Payload struct {
	id       schema.ID
	dryRun   bool
	resolver schema.Resolver
	backend  Backend

	mu         sync.Mutex
	encoded    []byte
	hasEncoded bool
	decoded    Data
	hasDecoded bool
}

// New creates a payload for schema id from exactly one of encoded or
// decoded. A nil slice or map means the form is absent. The decoded map is
// copied, so later changes by the caller do not reach the payload.
//
// Returns ErrInvalidArgument if both or neither form is given.
func New(id schema.ID, encoded []byte, decoded Data, opts ...Option) (*Payload, error) {
	if encoded != nil && decoded != nil {
		return nil, fmt.Errorf("%w: only one of encoded payload or payload data may be given", ErrInvalidArgument)
	}
	if encoded == nil && decoded == nil {
		return nil, fmt.Errorf("%w: either encoded payload or payload data must be given", ErrInvalidArgument)
	}

	o := newOptions(opts...)
	return &Payload{
		id:         id,
		dryRun:     o.dryRun,
		resolver:   o.resolver,
		backend:    o.backend,
		encoded:    encoded,
		hasEncoded: encoded != nil,
		decoded:    maps.Clone(decoded),
		hasDecoded: decoded != nil,
	}, nil
}

// SchemaID returns the id of the schema the payload is encoded with.
func (p *Payload) SchemaID() schema.ID {
	return p.id
}

// DryRun reports whether the payload renders text instead of Avro binary.
func (p *Payload) DryRun() bool {
	return p.dryRun
}

// Decoded returns the decoded data, decoding the encoded bytes on first use.
// The returned map is shared with the payload and must not be modified.
//
// Returns an error wrapping ErrSchemaResolution if the schema cannot be
// resolved, or ErrDecode if the bytes do not match it.
func (p *Payload) Decoded(ctx context.Context) (Data, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasDecoded {
		return p.decoded, nil
	}

	s, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	data, err := p.backend.Decode(s, p.encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %d: %w", ErrDecode, p.id, err)
	}

	p.decoded, p.hasDecoded = data, true
	return data, nil
}

// Encoded returns the encoded bytes, encoding the decoded data on first use.
// In dry-run mode the bytes are a textual rendering of the decoded data and
// no schema is resolved. The returned slice must not be modified.
//
// Returns an error wrapping ErrSchemaResolution if the schema cannot be
// resolved, or ErrEncode if the data does not match it.
func (p *Payload) Encoded(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasEncoded {
		return p.encoded, nil
	}

	if p.dryRun {
		p.encoded, p.hasEncoded = []byte(Render(p.decoded)), true
		return p.encoded, nil
	}

	s, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	b, err := p.backend.Encode(s, p.decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %d: %w", ErrEncode, p.id, err)
	}

	p.encoded, p.hasEncoded = b, true
	return b, nil
}

func (p *Payload) resolve(ctx context.Context) (*schema.Schema, error) {
	if p.resolver == nil {
		return nil, fmt.Errorf("%w: schema %d: no resolver configured", ErrSchemaResolution, p.id)
	}
	s, err := p.resolver.Resolve(ctx, p.id)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %d: %w", ErrSchemaResolution, p.id, err)
	}
	return s, nil
}

// Render returns the deterministic textual form of data used in dry-run
// mode. Map keys are printed in sorted order.
func Render(data Data) string {
	return fmt.Sprintf("%v", data)
}
