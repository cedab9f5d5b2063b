package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using a Redis Hash.
//
// Schemas are stored in a Redis Hash where:
//   - Key: configurable (default: "datapipeline:schemas")
//   - Field: schema id
//   - Value: JSON-encoded Schema
//
// Set uses HSETNX so that concurrent registrations of the same id cannot
// overwrite each other.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := schema.NewRedisStore(client)
//	defer store.Close()
type RedisStore struct {
	client redis.UniversalClient
	key    string
	mu     sync.RWMutex
	closed bool
}

// RedisOption configures RedisStore.
type RedisOption func(*RedisStore)

// WithKey sets a custom hash key (default: "datapipeline:schemas").
func WithKey(key string) RedisOption {
	return func(p *RedisStore) {
		if key != "" {
			p.key = key
		}
	}
}

// NewRedisStore creates a new Redis-based schema store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	p := &RedisStore{
		client: client,
		key:    "datapipeline:schemas",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RedisStore) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Get retrieves a schema by id.
func (p *RedisStore) Get(ctx context.Context, id ID) (*Schema, error) {
	if p.isClosed() {
		return nil, ErrStoreClosed
	}

	data, err := p.client.HGet(ctx, p.key, id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schema: %w", err)
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &s, nil
}

// Set registers a schema.
func (p *RedisStore) Set(ctx context.Context, schema *Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if p.isClosed() {
		return ErrStoreClosed
	}

	existing, err := p.Get(ctx, schema.ID)
	if err != nil {
		return err
	}
	s, err := register(existing, schema, time.Now())
	if err != nil || s == nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	set, err := p.client.HSetNX(ctx, p.key, s.ID.String(), data).Result()
	if err != nil {
		return fmt.Errorf("set schema: %w", err)
	}
	if !set {
		// Lost a race with another writer; apply the conflict rule to
		// whatever won.
		winner, err := p.Get(ctx, s.ID)
		if err != nil {
			return err
		}
		_, err = register(winner, schema, time.Now())
		return err
	}
	return nil
}

// Delete removes a schema.
func (p *RedisStore) Delete(ctx context.Context, id ID) error {
	if p.isClosed() {
		return ErrStoreClosed
	}

	if err := p.client.HDel(ctx, p.key, id.String()).Err(); err != nil {
		return fmt.Errorf("delete schema: %w", err)
	}
	return nil
}

// List returns all schemas ordered by id.
func (p *RedisStore) List(ctx context.Context) ([]*Schema, error) {
	if p.isClosed() {
		return nil, ErrStoreClosed
	}

	result, err := p.client.HGetAll(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	schemas := make([]*Schema, 0, len(result))
	for _, data := range result {
		var s Schema
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return nil, fmt.Errorf("unmarshal schema: %w", err)
		}
		schemas = append(schemas, &s)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].ID < schemas[j].ID })
	return schemas, nil
}

// Close closes the store. The Redis client is owned by the caller.
func (p *RedisStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Compile-time check that RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
