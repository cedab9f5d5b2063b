// Package meta provides meta attributes: Avro-encoded side payloads attached
// to pipeline messages under their "meta" key.
//
// Meta attributes carry information about a message's origin, for example
// the replication log position a change was read from, or the web request
// that produced a metric.
//
// An Attribute is created in one of two ways. A concrete attribute type
// embeds *Attribute and assembles the decoded data from typed parameters:
//
//	type Example struct{ *meta.Attribute }
//
//	func NewExample(param1 string, param2 int, opts ...payload.Option) (*Example, error) {
//	    a, err := meta.New(exampleSchemaID, nil, payload.Data{
//	        "param1": param1,
//	        "param2": param2,
//	    }, opts...)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Example{Attribute: a}, nil
//	}
//
// A received wire view is reconstructed without knowing the concrete type:
//
//	a, err := meta.FromWire(meta.Wire{SchemaID: id, Payload: b}, payload.WithResolver(r))
//
// Decoding is deferred until the payload data is first read.
package meta

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rbaliyan/datapipeline/payload"
	"github.com/rbaliyan/datapipeline/schema"
)

// Wire is the form of a meta attribute that crosses process boundaries.
// Only the encoded payload travels.
type Wire struct {
	SchemaID schema.ID `json:"schema_id" msgpack:"schema_id"`
	Payload  []byte    `json:"payload" msgpack:"payload"`
}

// Debug is the human-readable form of a meta attribute, used for logging
// and tracing. It is never transmitted.
type Debug struct {
	SchemaID    schema.ID    `json:"schema_id"`
	PayloadData payload.Data `json:"payload_data"`
}

// Attribute is a meta attribute backed by an Avro payload.
// Attributes are immutable after construction and safe for concurrent use.
type Attribute struct {
	schemaID schema.ID
	payload  *payload.Payload
}

// New creates an attribute from exactly one of encoded or decoded.
// Returns an error wrapping payload.ErrInvalidArgument if both or neither
// is given.
func New(id schema.ID, encoded []byte, decoded payload.Data, opts ...payload.Option) (*Attribute, error) {
	p, err := payload.New(id, encoded, decoded, opts...)
	if err != nil {
		return nil, err
	}
	return &Attribute{schemaID: p.SchemaID(), payload: p}, nil
}

// FromWire reconstructs an attribute from its wire view.
func FromWire(w Wire, opts ...payload.Option) (*Attribute, error) {
	return New(w.SchemaID, w.Payload, nil, opts...)
}

// SchemaID returns the id of the schema the payload is encoded with.
// It never triggers decoding.
func (a *Attribute) SchemaID() schema.ID {
	return a.schemaID
}

// Payload returns the Avro-encoded payload, or its textual rendering in
// dry-run mode.
func (a *Attribute) Payload(ctx context.Context) ([]byte, error) {
	return a.payload.Encoded(ctx)
}

// PayloadData returns the decoded payload.
func (a *Attribute) PayloadData(ctx context.Context) (payload.Data, error) {
	return a.payload.Decoded(ctx)
}

// WireView returns the {schema_id, payload} form.
func (a *Attribute) WireView(ctx context.Context) (Wire, error) {
	b, err := a.Payload(ctx)
	if err != nil {
		return Wire{}, err
	}
	return Wire{SchemaID: a.schemaID, Payload: b}, nil
}

// DebugView returns the {schema_id, payload_data} form.
func (a *Attribute) DebugView(ctx context.Context) (Debug, error) {
	data, err := a.PayloadData(ctx)
	if err != nil {
		return Debug{}, err
	}
	return Debug{SchemaID: a.schemaID, PayloadData: data}, nil
}

// String renders the debug view.
func (a *Attribute) String() string {
	d, err := a.DebugView(context.Background())
	if err != nil {
		return fmt.Sprintf("{schema_id: %d, error: %v}", a.schemaID, err)
	}
	return fmt.Sprintf("{schema_id: %d, payload_data: %s}", d.SchemaID, payload.Render(d.PayloadData))
}

// MarshalJSON encodes the debug view, for log tailers.
func (a *Attribute) MarshalJSON() ([]byte, error) {
	d, err := a.DebugView(context.Background())
	if err != nil {
		return nil, err
	}
	return json.Marshal(d)
}
