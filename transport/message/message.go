// Package message provides the pipeline message envelope.
//
// A message carries an Avro payload together with its meta attributes. It is
// imported by the codec package, which owns the wire formats.
package message

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rbaliyan/datapipeline/meta"
	"github.com/rbaliyan/datapipeline/payload"
	"github.com/rbaliyan/datapipeline/schema"
	"go.opentelemetry.io/otel/trace"
)

// Message is a pipeline message
type Message interface {
	// ID returns the unique message identifier
	ID() string
	// Topic returns the topic the message belongs to
	Topic() string
	// SchemaID returns the schema id of the payload, or 0 if there is none
	SchemaID() schema.ID
	// Payload returns the message payload, which may be nil
	Payload() *payload.Payload
	// Meta returns the meta attributes attached to the message
	Meta() []*meta.Attribute
	// Timestamp returns when the message was created
	Timestamp() time.Time
	// Context returns a context with trace information (if available)
	Context() context.Context
}

// message is the default Message implementation
type message struct {
	id        string
	topic     string
	payload   *payload.Payload
	meta      []*meta.Attribute
	timestamp time.Time
	span      trace.SpanContext
}

func (m *message) ID() string                { return m.id }
func (m *message) Topic() string             { return m.topic }
func (m *message) Payload() *payload.Payload { return m.payload }
func (m *message) Meta() []*meta.Attribute   { return m.meta }
func (m *message) Timestamp() time.Time      { return m.timestamp }

func (m *message) SchemaID() schema.ID {
	if m.payload == nil {
		return 0
	}
	return m.payload.SchemaID()
}

func (m *message) Context() context.Context {
	return trace.ContextWithRemoteSpanContext(context.Background(), m.span)
}

// New creates a message with a random id and the current time. The span
// context of ctx, if any, is carried by the message.
func New(ctx context.Context, topic string, p *payload.Payload, attrs ...*meta.Attribute) Message {
	return &message{
		id:        uuid.NewString(),
		topic:     topic,
		payload:   p,
		meta:      attrs,
		timestamp: time.Now(),
		span:      trace.SpanContextFromContext(ctx),
	}
}

// NewWithID creates a message with an explicit id, timestamp and remote
// span context. This is used by codecs rebuilding a message from its wire form.
func NewWithID(id, topic string, p *payload.Payload, attrs []*meta.Attribute, ts time.Time, spanCtx trace.SpanContext) Message {
	return &message{
		id:        id,
		topic:     topic,
		payload:   p,
		meta:      attrs,
		timestamp: ts,
		span:      spanCtx,
	}
}

// Compile-time interface check
var _ Message = (*message)(nil)
