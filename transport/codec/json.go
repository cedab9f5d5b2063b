package codec

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rbaliyan/datapipeline/payload"
)

// JSON implements Codec using JSON serialization.
// This is the default codec, providing human-readable output.
//
// Encoded payloads are stored as bytes (base64 in JSON wire format).
type JSON struct {
	// PayloadOptions configure the payloads and meta attributes of decoded
	// messages, typically payload.WithResolver.
	PayloadOptions []payload.Option
}

// Encode serializes a message to JSON bytes
func (c JSON) Encode(ctx context.Context, msg Message) ([]byte, error) {
	wm, err := toWire(ctx, msg)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	data, err := json.Marshal(wm)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	return data, nil
}

// Decode deserializes JSON bytes to a message
func (c JSON) Decode(ctx context.Context, data []byte) (Message, error) {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}

	msg, err := fromWire(&wm, c.PayloadOptions)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	return msg, nil
}

// ContentType returns the MIME type for JSON
func (c JSON) ContentType() string {
	return "application/json"
}

// Name returns the codec identifier
func (c JSON) Name() string {
	return "json"
}

// Compile-time check
var _ Codec = JSON{}
