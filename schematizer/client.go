// Package schematizer is the client side of the schema registry service.
//
// The registry assigns ids to Avro schemas and organizes them by namespace
// and source. This package converts registry responses into client models,
// caches them, and exposes them as plain result values. The transport to the
// registry is injected through the API interface.
//
// Example:
//
//	client := schematizer.NewClient(api,
//	    schematizer.WithCache(schematizer.NewRedisCache(rdb, "schematizer:", time.Hour)))
//
//	src, err := client.GetSourceByID(ctx, 12)
//
//	// The client resolves schema ids for payloads
//	p, err := payload.New(id, b, nil, payload.WithResolver(client))
package schematizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rbaliyan/datapipeline/schema"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrSourceNotFound is returned when the registry has no source with the
	// requested id.
	ErrSourceNotFound = errors.New("source not found")

	// ErrNilResponse is returned when the registry API returns no response
	// and no error.
	ErrNilResponse = errors.New("empty registry response")

	// ErrIDMismatch is returned when the registry answers with a different
	// id than the one requested.
	ErrIDMismatch = errors.New("registry response id mismatch")
)

// API is the transport to the registry service.
type API interface {
	// GetSourceByID returns the source with the given id.
	// Returns an error wrapping ErrSourceNotFound if it does not exist.
	GetSourceByID(ctx context.Context, id int) (*SourceResponse, error)

	// GetSchemaByID returns the schema with the given id.
	// Returns an error wrapping schema.ErrSchemaNotFound if it does not exist.
	GetSchemaByID(ctx context.Context, id int) (*SchemaResponse, error)
}

type clientOptions struct {
	cache  Cache
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

// WithCache sets the cache for registry results (default: an unbounded
// MemoryCache).
func WithCache(c Cache) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Client reads sources and schemas from the registry through a cache.
// Client is safe for concurrent use.
type Client struct {
	api    API
	cache  Cache
	logger *slog.Logger
}

// NewClient creates a registry client.
func NewClient(api API, opts ...Option) *Client {
	o := &clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache == nil {
		o.cache = NewMemoryCache(0)
	}
	return &Client{api: api, cache: o.cache, logger: o.logger}
}

func sourceKey(id int) string { return "source:" + strconv.Itoa(id) }
func schemaKey(id int) string { return "schema:" + strconv.Itoa(id) }

// GetSourceByID returns the source with the given id.
func (c *Client) GetSourceByID(ctx context.Context, id int) (*Source, error) {
	key := sourceKey(id)

	var cv sourceCacheValue
	if ok := c.load(ctx, key, &cv); ok {
		src := sourceFromCacheValue(cv).toResult()
		return &src, nil
	}

	resp, err := c.api.GetSourceByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get source %d: %w", id, err)
	}
	m, err := sourceFromResponse(resp)
	if err != nil {
		return nil, err
	}
	if m.sourceID != id {
		return nil, fmt.Errorf("%w: requested source %d, got %d", ErrIDMismatch, id, m.sourceID)
	}

	c.store(ctx, key, m.toCacheValue())
	src := m.toResult()
	return &src, nil
}

// GetSchemaByID returns the schema with the given id.
func (c *Client) GetSchemaByID(ctx context.Context, id int) (*schema.Schema, error) {
	key := schemaKey(id)

	var cv schemaCacheValue
	if ok := c.load(ctx, key, &cv); ok {
		return schemaFromCacheValue(cv), nil
	}

	resp, err := c.api.GetSchemaByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schema %d: %w", id, err)
	}
	s, err := schemaFromResponse(resp, time.Now())
	if err != nil {
		return nil, err
	}
	if int(s.ID) != id {
		return nil, fmt.Errorf("%w: requested schema %d, got %d", ErrIDMismatch, id, s.ID)
	}

	c.store(ctx, key, schemaToCacheValue(s))
	return s, nil
}

// Resolve implements schema.Resolver.
func (c *Client) Resolve(ctx context.Context, id schema.ID) (*schema.Schema, error) {
	return c.GetSchemaByID(ctx, int(id))
}

// load reads and decodes a cache value. Cache failures are logged and
// treated as misses.
func (c *Client) load(ctx context.Context, key string, v any) bool {
	b, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("schematizer cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		c.logger.Debug("schematizer cache miss", "key", key)
		return false
	}
	if err := msgpack.Unmarshal(b, v); err != nil {
		c.logger.Warn("schematizer cache value corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// store encodes and writes a cache value. The registry result is still
// returned if the write fails.
func (c *Client) store(ctx context.Context, key string, v any) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		c.logger.Warn("schematizer cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, b); err != nil {
		c.logger.Warn("schematizer cache write failed", "key", key, "error", err)
	}
}

var _ schema.Resolver = (*Client)(nil)
