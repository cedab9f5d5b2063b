package payload

import (
	"sync"

	"github.com/hamba/avro/v2"
	"github.com/rbaliyan/datapipeline/schema"
)

// Hamba implements Backend using github.com/hamba/avro/v2.
// Avro int decodes to Go int and long to int64.
//
// Parsed schemas are cached by id.
type Hamba struct {
	parsed sync.Map // map[schema.ID]*parsedSchema
}

type parsedSchema struct {
	definition string
	avro       avro.Schema
}

// NewHamba creates a hamba backend.
func NewHamba() *Hamba {
	return &Hamba{}
}

// Name returns the backend identifier.
func (h *Hamba) Name() string {
	return "hamba"
}

// Encode serializes data to Avro binary.
func (h *Hamba) Encode(s *schema.Schema, data Data) ([]byte, error) {
	parsed, err := h.parse(s)
	if err != nil {
		return nil, err
	}
	return avro.Marshal(parsed, data)
}

// Decode deserializes Avro binary to a record.
func (h *Hamba) Decode(s *schema.Schema, b []byte) (Data, error) {
	parsed, err := h.parse(s)
	if err != nil {
		return nil, err
	}
	var data Data
	if err := avro.Unmarshal(parsed, b, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (h *Hamba) parse(s *schema.Schema) (avro.Schema, error) {
	if v, ok := h.parsed.Load(s.ID); ok {
		if ps := v.(*parsedSchema); ps.definition == s.Definition {
			return ps.avro, nil
		}
	}
	parsed, err := s.Parse()
	if err != nil {
		return nil, err
	}
	h.parsed.Store(s.ID, &parsedSchema{definition: s.Definition, avro: parsed})
	return parsed, nil
}

// Compile-time check.
var _ Backend = (*Hamba)(nil)
