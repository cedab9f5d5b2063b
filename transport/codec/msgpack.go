package codec

import (
	"context"
	"errors"

	"github.com/rbaliyan/datapipeline/payload"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgPack implements Codec using MessagePack serialization.
// MessagePack is a binary format that's more compact than JSON
// and carries encoded payloads as raw bytes instead of base64.
type MsgPack struct {
	// PayloadOptions configure the payloads and meta attributes of decoded
	// messages.
	PayloadOptions []payload.Option
}

// Encode serializes a message to MessagePack bytes
func (c MsgPack) Encode(ctx context.Context, msg Message) ([]byte, error) {
	wm, err := toWire(ctx, msg)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	data, err := msgpack.Marshal(wm)
	if err != nil {
		return nil, errors.Join(ErrEncodeFailure, err)
	}

	return data, nil
}

// Decode deserializes MessagePack bytes to a message
func (c MsgPack) Decode(ctx context.Context, data []byte) (Message, error) {
	var wm wireMessage
	if err := msgpack.Unmarshal(data, &wm); err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}

	msg, err := fromWire(&wm, c.PayloadOptions)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailure, err)
	}
	return msg, nil
}

// ContentType returns the MIME type for MessagePack
func (c MsgPack) ContentType() string {
	return "application/msgpack"
}

// Name returns the codec identifier
func (c MsgPack) Name() string {
	return "msgpack"
}

// Compile-time check
var _ Codec = MsgPack{}
