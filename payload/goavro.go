package payload

import (
	"fmt"
	"sync"

	"github.com/linkedin/goavro/v2"
	"github.com/rbaliyan/datapipeline/schema"
)

// GoAvro implements Backend using github.com/linkedin/goavro/v2.
// Avro int decodes to Go int32 and long to int64. Trailing bytes after the
// record are rejected.
//
// Usage:
//
//	p, err := payload.New(id, b, nil,
//	    payload.WithResolver(resolver),
//	    payload.WithBackend(payload.MustGetBackend("goavro")))
type GoAvro struct {
	codecs sync.Map // map[schema.ID]*goavroCodec
}

type goavroCodec struct {
	definition string
	codec      *goavro.Codec
}

// NewGoAvro creates a goavro backend.
func NewGoAvro() *GoAvro {
	return &GoAvro{}
}

// Name returns the backend identifier.
func (g *GoAvro) Name() string {
	return "goavro"
}

// Encode serializes data to Avro binary.
func (g *GoAvro) Encode(s *schema.Schema, data Data) ([]byte, error) {
	codec, err := g.codec(s)
	if err != nil {
		return nil, err
	}
	return codec.BinaryFromNative(nil, data)
}

// Decode deserializes Avro binary to a record.
func (g *GoAvro) Decode(s *schema.Schema, b []byte) (Data, error) {
	codec, err := g.codec(s)
	if err != nil {
		return nil, err
	}
	native, rest, err := codec.NativeFromBinary(b)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%d trailing bytes after record", len(rest))
	}
	data, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema %d does not describe a record, got %T", s.ID, native)
	}
	return data, nil
}

func (g *GoAvro) codec(s *schema.Schema) (*goavro.Codec, error) {
	if v, ok := g.codecs.Load(s.ID); ok {
		if c := v.(*goavroCodec); c.definition == s.Definition {
			return c.codec, nil
		}
	}
	codec, err := goavro.NewCodec(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %d: %w", schema.ErrInvalidDefinition, s.ID, err)
	}
	g.codecs.Store(s.ID, &goavroCodec{definition: s.Definition, codec: codec})
	return codec, nil
}

// Compile-time check.
var _ Backend = (*GoAvro)(nil)

func init() {
	RegisterBackend(NewGoAvro())
}
