package payload

import (
	"sync"

	"github.com/rbaliyan/datapipeline/schema"
)

// Backend encodes and decodes Avro records against a resolved schema.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Name returns a short identifier (e.g., "hamba", "goavro").
	Name() string

	// Encode serializes data to Avro binary.
	Encode(s *schema.Schema, data Data) ([]byte, error)

	// Decode deserializes Avro binary to a record.
	Decode(s *schema.Schema, b []byte) (Data, error)
}

var (
	defaultBackend = NewHamba()

	mu       sync.RWMutex
	backends = map[string]Backend{
		defaultBackend.Name(): defaultBackend,
	}
)

// Default returns the default backend (hamba).
func Default() Backend {
	return defaultBackend
}

// RegisterBackend adds a backend to the global registry, keyed by Name().
func RegisterBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends[b.Name()] = b
}

// GetBackend retrieves a backend by name from the global registry.
func GetBackend(name string) (Backend, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	return b, ok
}

// MustGetBackend retrieves a backend by name, returning the default backend
// if name is not registered.
func MustGetBackend(name string) Backend {
	if b, ok := GetBackend(name); ok {
		return b
	}
	return Default()
}
