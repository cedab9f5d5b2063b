package codec

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/datapipeline/meta"
	"github.com/rbaliyan/datapipeline/payload"
	"github.com/rbaliyan/datapipeline/schema"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Proto implements Codec using Protocol Buffers serialization.
//
// Messages are carried as a google.protobuf.Struct so that any consumer with
// the well-known types can read them without generated code. Encoded
// payloads are base64 strings and timestamps are RFC 3339 strings.
type Proto struct {
	// PayloadOptions configure the payloads and meta attributes of decoded
	// messages.
	PayloadOptions []payload.Option
}

// Encode serializes a message to Protocol Buffer bytes
func (c Proto) Encode(ctx context.Context, msg Message) ([]byte, error) {
	wm, err := toWire(ctx, msg)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	fields := map[string]*structpb.Value{
		"id":        structpb.NewStringValue(wm.ID),
		"topic":     structpb.NewStringValue(wm.Topic),
		"timestamp": structpb.NewStringValue(wm.Timestamp.Format(time.RFC3339Nano)),
	}
	if wm.Trace != "" {
		fields[traceparentHeader] = structpb.NewStringValue(wm.Trace)
	}
	if wm.SchemaID != 0 {
		fields["schema_id"] = structpb.NewNumberValue(float64(wm.SchemaID))
		fields["payload"] = bytesValue(wm.Payload)
	}
	if len(wm.Meta) > 0 {
		list := make([]*structpb.Value, 0, len(wm.Meta))
		for _, w := range wm.Meta {
			list = append(list, structpb.NewStructValue(&structpb.Struct{
				Fields: map[string]*structpb.Value{
					"schema_id": structpb.NewNumberValue(float64(w.SchemaID)),
					"payload":   bytesValue(w.Payload),
				},
			}))
		}
		fields["meta"] = structpb.NewListValue(&structpb.ListValue{Values: list})
	}

	data, err := proto.Marshal(&structpb.Struct{Fields: fields})
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	return data, nil
}

// Decode deserializes Protocol Buffer bytes to a message
func (c Proto) Decode(ctx context.Context, data []byte) (Message, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}

	wm, err := wireFromStruct(&s)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}

	msg, err := fromWire(wm, c.PayloadOptions)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	return msg, nil
}

func wireFromStruct(s *structpb.Struct) (*wireMessage, error) {
	f := s.GetFields()
	wm := &wireMessage{
		ID:    f["id"].GetStringValue(),
		Topic: f["topic"].GetStringValue(),
		Trace: f[traceparentHeader].GetStringValue(),
	}

	if ts := f["timestamp"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
		wm.Timestamp = t
	}

	if v, ok := f["schema_id"]; ok {
		wm.SchemaID = schema.ID(v.GetNumberValue())
		b, err := base64.StdEncoding.DecodeString(f["payload"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		wm.Payload = b
	}

	for i, v := range f["meta"].GetListValue().GetValues() {
		mf := v.GetStructValue().GetFields()
		b, err := base64.StdEncoding.DecodeString(mf["payload"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("meta attribute %d: %w", i, err)
		}
		wm.Meta = append(wm.Meta, meta.Wire{
			SchemaID: schema.ID(mf["schema_id"].GetNumberValue()),
			Payload:  b,
		})
	}

	return wm, nil
}

func bytesValue(b []byte) *structpb.Value {
	return structpb.NewStringValue(base64.StdEncoding.EncodeToString(b))
}

// ContentType returns the MIME type for Protocol Buffers
func (c Proto) ContentType() string {
	return "application/x-protobuf"
}

// Name returns the codec identifier
func (c Proto) Name() string {
	return "proto"
}

// Compile-time check
var _ Codec = Proto{}
