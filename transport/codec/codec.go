// Package codec provides message serialization/deserialization for
// pipeline transports.
//
// Supported formats:
//   - JSON (default, human-readable)
//   - MessagePack (binary, compact)
//   - Protocol Buffers (binary, google.protobuf.Struct)
//
// Payloads and meta attributes cross the boundary only in their encoded
// {schema_id, payload} form. Decoding rebuilds them lazily: nothing is
// resolved or decoded until the handler asks for the data. The span context
// of a message travels as a W3C traceparent.
package codec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rbaliyan/datapipeline/meta"
	"github.com/rbaliyan/datapipeline/payload"
	"github.com/rbaliyan/datapipeline/schema"
	"github.com/rbaliyan/datapipeline/transport/message"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Codec errors
var (
	ErrEncodeFailure = errors.New("failed to encode message")
	ErrDecodeFailure = errors.New("failed to decode message")
)

// Message is the message interface used by codecs
type Message = message.Message

// Codec handles message serialization/deserialization for external transports.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Encode serializes a message to bytes. Payloads that are only held in
	// decoded form are encoded first, which may resolve their schemas.
	// Returns ErrEncodeFailure if serialization fails.
	Encode(ctx context.Context, msg Message) ([]byte, error)

	// Decode deserializes bytes to a message.
	// Returns ErrDecodeFailure if deserialization fails.
	Decode(ctx context.Context, data []byte) (Message, error)

	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Name returns a short identifier for this codec (e.g., "json", "msgpack", "proto").
	Name() string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{
		"json":    JSON{},
		"msgpack": MsgPack{},
		"proto":   Proto{},
	}
)

// Default returns the default codec (JSON)
func Default() Codec {
	return JSON{}
}

// Register adds a codec to the registry under its name, replacing any
// codec already registered with that name.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

// Get returns the codec registered under name.
func Get(name string) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// wireMessage is the format-neutral wire form shared by JSON and MsgPack
type wireMessage struct {
	ID        string      `json:"id" msgpack:"id"`
	Topic     string      `json:"topic" msgpack:"topic"`
	SchemaID  schema.ID   `json:"schema_id,omitempty" msgpack:"schema_id,omitempty"`
	Payload   []byte      `json:"payload,omitempty" msgpack:"payload,omitempty"`
	Meta      []meta.Wire `json:"meta,omitempty" msgpack:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp" msgpack:"timestamp"`
	Trace     string      `json:"traceparent,omitempty" msgpack:"traceparent,omitempty"`
}

const traceparentHeader = "traceparent"

var traceContext = propagation.TraceContext{}

func injectTrace(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	traceContext.Inject(ctx, carrier)
	return carrier.Get(traceparentHeader)
}

func extractTrace(traceparent string) trace.SpanContext {
	if traceparent == "" {
		return trace.SpanContext{}
	}
	ctx := traceContext.Extract(context.Background(), propagation.MapCarrier{traceparentHeader: traceparent})
	return trace.SpanContextFromContext(ctx)
}

// toWire rejects invalid schema ids: the wire form uses id 0 to mean the
// message has no payload.
func toWire(ctx context.Context, msg Message) (*wireMessage, error) {
	wm := &wireMessage{
		ID:        msg.ID(),
		Topic:     msg.Topic(),
		Timestamp: msg.Timestamp(),
		Trace:     injectTrace(msg.Context()),
	}

	if p := msg.Payload(); p != nil {
		if !p.SchemaID().Valid() {
			return nil, fmt.Errorf("payload: %w: %d", schema.ErrInvalidID, p.SchemaID())
		}
		b, err := p.Encoded(ctx)
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		wm.SchemaID = p.SchemaID()
		wm.Payload = b
	}

	for i, a := range msg.Meta() {
		if !a.SchemaID().Valid() {
			return nil, fmt.Errorf("meta attribute %d: %w: %d", i, schema.ErrInvalidID, a.SchemaID())
		}
		w, err := a.WireView(ctx)
		if err != nil {
			return nil, fmt.Errorf("meta attribute %d: %w", i, err)
		}
		wm.Meta = append(wm.Meta, w)
	}

	return wm, nil
}

func fromWire(wm *wireMessage, opts []payload.Option) (Message, error) {
	var p *payload.Payload
	if wm.SchemaID != 0 {
		var err error
		if p, err = payload.New(wm.SchemaID, nonNil(wm.Payload), nil, opts...); err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
	}

	var attrs []*meta.Attribute
	for i, w := range wm.Meta {
		w.Payload = nonNil(w.Payload)
		a, err := meta.FromWire(w, opts...)
		if err != nil {
			return nil, fmt.Errorf("meta attribute %d: %w", i, err)
		}
		attrs = append(attrs, a)
	}

	return message.NewWithID(wm.ID, wm.Topic, p, attrs, wm.Timestamp, extractTrace(wm.Trace)), nil
}

// nonNil keeps empty encoded payloads distinguishable from absent ones;
// formats that omit empty byte strings decode them as nil.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
