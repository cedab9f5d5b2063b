package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// StoreResolver adapts a Store to the Resolver interface.
type StoreResolver struct {
	store Store
}

// NewStoreResolver creates a resolver that reads schemas from store.
func NewStoreResolver(store Store) *StoreResolver {
	return &StoreResolver{store: store}
}

// Resolve returns the schema registered under id.
func (r *StoreResolver) Resolve(ctx context.Context, id ID) (*Schema, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	s, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: id %d", ErrSchemaNotFound, id)
	}
	return s, nil
}

var _ Resolver = (*StoreResolver)(nil)

// cachingOptions holds configuration for CachingResolver (unexported)
type cachingOptions struct {
	logger         *slog.Logger
	limiter        *rate.Limiter
	timeout        time.Duration
	name           string
	metricsEnabled bool
	tracingEnabled bool
}

// CachingOption option function for CachingResolver configuration
type CachingOption func(*cachingOptions)

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) CachingOption {
	return func(o *cachingOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRateLimit limits upstream lookups to r per second with the given
// burst. Cache hits are never limited.
func WithRateLimit(r float64, burst int) CachingOption {
	return func(o *cachingOptions) {
		if r > 0 && burst > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// WithTimeout bounds each upstream lookup (default: 30s). Lookups run
// detached from the caller's context so that one caller giving up does not
// fail the others waiting on the same id; a zero timeout leaves them unbounded.
func WithTimeout(d time.Duration) CachingOption {
	return func(o *cachingOptions) {
		if d >= 0 {
			o.timeout = d
		}
	}
}

// WithName sets the instrumentation name used for metrics and tracing
// (default: "datapipeline.schema").
func WithName(name string) CachingOption {
	return func(o *cachingOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithMetrics enables/disables OpenTelemetry metrics
func WithMetrics(enabled bool) CachingOption {
	return func(o *cachingOptions) {
		o.metricsEnabled = enabled
	}
}

// WithTracing enables/disables OpenTelemetry tracing of upstream lookups
func WithTracing(enabled bool) CachingOption {
	return func(o *cachingOptions) {
		o.tracingEnabled = enabled
	}
}

func newCachingOptions(opts ...CachingOption) *cachingOptions {
	o := &cachingOptions{
		logger:         slog.Default(),
		timeout:        30 * time.Second,
		name:           "datapipeline.schema",
		metricsEnabled: true,
		tracingEnabled: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CachingResolver caches the schemas returned by another Resolver.
//
// Schemas are immutable per id, so a resolved schema never goes stale and
// is kept until Invalidate is called. Failed lookups are not cached.
// Concurrent lookups of the same id share a single upstream call.
//
// CachingResolver is safe for concurrent use.
type CachingResolver struct {
	upstream Resolver
	opts     *cachingOptions
	group    singleflight.Group

	mu      sync.RWMutex
	schemas map[ID]*Schema

	tracer trace.Tracer
	hits   metric.Int64Counter
	misses metric.Int64Counter
	errors metric.Int64Counter
}

// NewCachingResolver wraps upstream with an in-memory cache.
func NewCachingResolver(upstream Resolver, opts ...CachingOption) *CachingResolver {
	o := newCachingOptions(opts...)
	r := &CachingResolver{
		upstream: upstream,
		opts:     o,
		schemas:  make(map[ID]*Schema),
	}

	if o.metricsEnabled {
		meter := otel.Meter(o.name)
		r.hits, _ = meter.Int64Counter("schema.resolve.hits",
			metric.WithDescription("Schema resolutions served from cache"))
		r.misses, _ = meter.Int64Counter("schema.resolve.misses",
			metric.WithDescription("Schema resolutions forwarded upstream"))
		r.errors, _ = meter.Int64Counter("schema.resolve.errors",
			metric.WithDescription("Failed upstream schema resolutions"))
	}
	if o.tracingEnabled {
		r.tracer = otel.Tracer(o.name)
	}
	return r
}

// Resolve returns the cached schema for id, resolving it upstream on a miss.
func (r *CachingResolver) Resolve(ctx context.Context, id ID) (*Schema, error) {
	attrs := metric.WithAttributes(attribute.Int("schema_id", int(id)))

	if s, ok := r.cached(id); ok {
		r.add(ctx, r.hits, attrs)
		return s, nil
	}
	r.add(ctx, r.misses, attrs)

	ch := r.group.DoChan(id.String(), func() (any, error) {
		// Another caller may have filled the cache while we queued.
		if s, ok := r.cached(id); ok {
			return s, nil
		}
		fctx := context.WithoutCancel(ctx)
		if r.opts.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, r.opts.timeout)
			defer cancel()
		}
		s, err := r.fetch(fctx, id)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.schemas[id] = s
		r.mu.Unlock()
		return s, nil
	})

	select {
	case <-ctx.Done():
		err := fmt.Errorf("schema %d: %w", id, ctx.Err())
		r.add(ctx, r.errors, attrs)
		r.opts.logger.Debug("schema resolution abandoned", "schema_id", int(id), "error", err)
		return nil, err
	case res := <-ch:
		if res.Err != nil {
			r.add(ctx, r.errors, attrs)
			r.opts.logger.Debug("schema resolution failed", "schema_id", int(id), "shared", res.Shared, "error", res.Err)
			return nil, res.Err
		}
		return res.Val.(*Schema).Clone(), nil
	}
}

func (r *CachingResolver) fetch(ctx context.Context, id ID) (*Schema, error) {
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "schema.resolve",
			trace.WithAttributes(attribute.Int("schema_id", int(id))),
			trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		s, err := r.lookup(ctx, id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return s, err
	}
	return r.lookup(ctx, id)
}

func (r *CachingResolver) lookup(ctx context.Context, id ID) (*Schema, error) {
	if r.opts.limiter != nil {
		if err := r.opts.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("schema %d: rate limit: %w", id, err)
		}
	}
	r.opts.logger.Debug("resolving schema upstream", "schema_id", int(id))
	s, err := r.upstream.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (r *CachingResolver) cached(id ID) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (r *CachingResolver) add(ctx context.Context, c metric.Int64Counter, attrs metric.AddOption) {
	if c != nil {
		c.Add(ctx, 1, attrs)
	}
}

// Invalidate drops id from the cache.
func (r *CachingResolver) Invalidate(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schemas, id)
}

// Len returns the number of cached schemas.
func (r *CachingResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}

var _ Resolver = (*CachingResolver)(nil)
