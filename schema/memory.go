package schema

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory storage.
// Primarily intended for testing and development.
// Data is lost on restart.
//
// Example:
//
//	store := schema.NewMemoryStore()
//	defer store.Close()
//
//	resolver := schema.NewStoreResolver(store)
type MemoryStore struct {
	mu      sync.RWMutex
	schemas map[ID]*Schema
	closed  bool
}

// NewMemoryStore creates a new in-memory schema store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schemas: make(map[ID]*Schema),
	}
}

// Get retrieves a schema by id.
func (p *MemoryStore) Get(ctx context.Context, id ID) (*Schema, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrStoreClosed
	}

	s, ok := p.schemas[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// Set registers a schema.
func (p *MemoryStore) Set(ctx context.Context, schema *Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrStoreClosed
	}

	s, err := register(p.schemas[schema.ID], schema, time.Now())
	if err != nil || s == nil {
		return err
	}
	p.schemas[s.ID] = s
	return nil
}

// Delete removes a schema.
func (p *MemoryStore) Delete(ctx context.Context, id ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrStoreClosed
	}

	delete(p.schemas, id)
	return nil
}

// List returns all schemas ordered by id.
func (p *MemoryStore) List(ctx context.Context) ([]*Schema, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrStoreClosed
	}

	result := make([]*Schema, 0, len(p.schemas))
	for _, s := range p.schemas {
		result = append(result, s.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Close closes the store.
func (p *MemoryStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	p.schemas = nil
	return nil
}

// Len returns the number of schemas (for testing).
func (p *MemoryStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.schemas)
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
