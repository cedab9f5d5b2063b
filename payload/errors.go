package payload

import "errors"

var (
	// ErrInvalidArgument is returned when a payload is constructed with both
	// or neither of its encoded and decoded forms.
	ErrInvalidArgument = errors.New("invalid payload argument")

	// ErrSchemaResolution is returned when the payload schema id cannot be
	// resolved.
	ErrSchemaResolution = errors.New("schema resolution failed")

	// ErrDecode is returned when the encoded bytes do not conform to the
	// resolved schema.
	ErrDecode = errors.New("failed to decode payload")

	// ErrEncode is returned when the payload data does not conform to the
	// resolved schema.
	ErrEncode = errors.New("failed to encode payload")
)
