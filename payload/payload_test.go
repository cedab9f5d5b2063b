package payload

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rbaliyan/datapipeline/schema"
	"syreclabs.com/go/faker"
)

func init() {
	faker.Seed(time.Now().UnixNano())
}

const exampleDefinition = `{
	"type": "record",
	"name": "Example",
	"fields": [
		{"name": "param1", "type": "string"},
		{"name": "param2", "type": "int"}
	]
}`

type countingResolver struct {
	calls atomic.Int32
	store *schema.MemoryStore
}

func newCountingResolver(t *testing.T) *countingResolver {
	t.Helper()
	store := schema.NewMemoryStore()
	if err := store.Set(context.Background(), &schema.Schema{ID: 42, Definition: exampleDefinition}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	return &countingResolver{store: store}
}

func (r *countingResolver) Resolve(ctx context.Context, id schema.ID) (*schema.Schema, error) {
	r.calls.Add(1)
	return schema.NewStoreResolver(r.store).Resolve(ctx, id)
}

type countingBackend struct {
	Backend
	encodes atomic.Int32
	decodes atomic.Int32
}

func (b *countingBackend) Encode(s *schema.Schema, data Data) ([]byte, error) {
	b.encodes.Add(1)
	return b.Backend.Encode(s, data)
}

func (b *countingBackend) Decode(s *schema.Schema, data []byte) (Data, error) {
	b.decodes.Add(1)
	return b.Backend.Decode(s, data)
}

func TestNew(t *testing.T) {
	t.Run("Both forms is invalid", func(t *testing.T) {
		p, err := New(7, []byte{0x02, 0x61, 0x02}, Data{"param1": "a", "param2": 1})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if p != nil {
			t.Error("expected no payload on failure")
		}
	})

	t.Run("Neither form is invalid", func(t *testing.T) {
		if _, err := New(7, nil, nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Stores schema id and dry run", func(t *testing.T) {
		p, err := New(42, nil, Data{"param1": "a"}, WithDryRun(true))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if p.SchemaID() != 42 {
			t.Errorf("expected schema id 42, got %d", p.SchemaID())
		}
		if !p.DryRun() {
			t.Error("expected dry run")
		}
	})
}

func TestPayload(t *testing.T) {
	ctx := context.Background()

	t.Run("Round trip", func(t *testing.T) {
		resolver := newCountingResolver(t)
		data := Data{"param1": "a", "param2": 1}

		src, err := New(42, nil, data, WithResolver(resolver))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		b, err := src.Encoded(ctx)
		if err != nil {
			t.Fatalf("Encoded failed: %v", err)
		}

		dst, err := New(42, b, nil, WithResolver(resolver))
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		got, err := dst.Decoded(ctx)
		if err != nil {
			t.Fatalf("Decoded failed: %v", err)
		}
		if diff := cmp.Diff(data, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Round trip generated values", func(t *testing.T) {
		resolver := newCountingResolver(t)
		for i := 0; i < 20; i++ {
			data := Data{
				"param1": faker.Lorem().String(),
				"param2": faker.RandomInt(math.MinInt32, math.MaxInt32),
			}
			src, _ := New(42, nil, data, WithResolver(resolver))
			b, err := src.Encoded(ctx)
			if err != nil {
				t.Fatalf("Encoded failed: %v", err)
			}
			dst, _ := New(42, b, nil, WithResolver(resolver))
			got, err := dst.Decoded(ctx)
			if err != nil {
				t.Fatalf("Decoded failed: %v", err)
			}
			if diff := cmp.Diff(data, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		}
	})

	t.Run("Decoded given data is returned without resolving", func(t *testing.T) {
		resolver := newCountingResolver(t)
		data := Data{"param1": "a", "param2": 1}
		p, _ := New(42, nil, data, WithResolver(resolver))

		got, err := p.Decoded(ctx)
		if err != nil {
			t.Fatalf("Decoded failed: %v", err)
		}
		if diff := cmp.Diff(data, got); diff != "" {
			t.Errorf("unexpected data (-want +got):\n%s", diff)
		}
		if resolver.calls.Load() != 0 {
			t.Errorf("expected no resolution, got %d", resolver.calls.Load())
		}
	})

	t.Run("Decode happens at most once", func(t *testing.T) {
		resolver := newCountingResolver(t)
		backend := &countingBackend{Backend: NewHamba()}
		b, _ := NewHamba().Encode(&schema.Schema{ID: 42, Definition: exampleDefinition}, Data{"param1": "a", "param2": 1})

		p, _ := New(42, b, nil, WithResolver(resolver), WithBackend(backend))
		first, err := p.Decoded(ctx)
		if err != nil {
			t.Fatalf("Decoded failed: %v", err)
		}
		second, _ := p.Decoded(ctx)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("decoded values differ (-first +second):\n%s", diff)
		}
		if resolver.calls.Load() != 1 {
			t.Errorf("expected 1 resolution, got %d", resolver.calls.Load())
		}
		if backend.decodes.Load() != 1 {
			t.Errorf("expected 1 decode, got %d", backend.decodes.Load())
		}
	})

	t.Run("Encode happens at most once", func(t *testing.T) {
		resolver := newCountingResolver(t)
		backend := &countingBackend{Backend: NewHamba()}
		p, _ := New(42, nil, Data{"param1": "a", "param2": 1}, WithResolver(resolver), WithBackend(backend))

		first, err := p.Encoded(ctx)
		if err != nil {
			t.Fatalf("Encoded failed: %v", err)
		}
		second, _ := p.Encoded(ctx)

		if string(first) != string(second) {
			t.Errorf("encoded values differ: %x vs %x", first, second)
		}
		if resolver.calls.Load() != 1 {
			t.Errorf("expected 1 resolution, got %d", resolver.calls.Load())
		}
		if backend.encodes.Load() != 1 {
			t.Errorf("expected 1 encode, got %d", backend.encodes.Load())
		}
	})

	t.Run("Concurrent reads derive once", func(t *testing.T) {
		resolver := newCountingResolver(t)
		backend := &countingBackend{Backend: NewHamba()}
		p, _ := New(42, nil, Data{"param1": "a", "param2": 1}, WithResolver(resolver), WithBackend(backend))

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := p.Encoded(ctx); err != nil {
					t.Errorf("Encoded failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if backend.encodes.Load() != 1 {
			t.Errorf("expected 1 encode, got %d", backend.encodes.Load())
		}
	})

	t.Run("Dry run renders text without a backend", func(t *testing.T) {
		resolver := newCountingResolver(t)
		backend := &countingBackend{Backend: NewHamba()}
		p, _ := New(42, nil, Data{"param2": 1, "param1": "a"},
			WithResolver(resolver), WithBackend(backend), WithDryRun(true))

		first, err := p.Encoded(ctx)
		if err != nil {
			t.Fatalf("Encoded failed: %v", err)
		}
		second, _ := p.Encoded(ctx)

		if string(first) != "map[param1:a param2:1]" {
			t.Errorf("unexpected rendering %q", first)
		}
		if string(first) != string(second) {
			t.Errorf("rendering changed: %q vs %q", first, second)
		}
		if backend.encodes.Load() != 0 || resolver.calls.Load() != 0 {
			t.Errorf("expected no encode or resolution, got %d/%d", backend.encodes.Load(), resolver.calls.Load())
		}
	})

	t.Run("Dry run returns given bytes", func(t *testing.T) {
		p, _ := New(42, []byte("raw"), nil, WithDryRun(true))
		b, err := p.Encoded(ctx)
		if err != nil || string(b) != "raw" {
			t.Errorf("expected raw, got %q, %v", b, err)
		}
	})

	t.Run("Unknown schema fails resolution", func(t *testing.T) {
		p, _ := New(7, nil, Data{"param1": "a"}, WithResolver(newCountingResolver(t)))
		_, err := p.Encoded(ctx)
		if !errors.Is(err, ErrSchemaResolution) {
			t.Errorf("expected ErrSchemaResolution, got %v", err)
		}
		if !errors.Is(err, schema.ErrSchemaNotFound) {
			t.Errorf("expected wrapped ErrSchemaNotFound, got %v", err)
		}
	})

	t.Run("Missing resolver fails resolution", func(t *testing.T) {
		p, _ := New(42, []byte{0x02, 0x61, 0x02}, nil)
		if _, err := p.Decoded(ctx); !errors.Is(err, ErrSchemaResolution) {
			t.Errorf("expected ErrSchemaResolution, got %v", err)
		}
	})

	t.Run("Caller changes to data do not reach the payload", func(t *testing.T) {
		resolver := newCountingResolver(t)
		data := Data{"param1": "a", "param2": 1}
		p, _ := New(42, nil, data, WithResolver(resolver))

		b, err := p.Encoded(ctx)
		if err != nil {
			t.Fatalf("Encoded failed: %v", err)
		}
		data["param1"] = "changed"

		got, err := p.Decoded(ctx)
		if err != nil {
			t.Fatalf("Decoded failed: %v", err)
		}
		want := Data{"param1": "a", "param2": 1}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("decoded mismatch (-want +got):\n%s", diff)
		}

		q, _ := New(42, b, nil, WithResolver(resolver))
		fromBytes, err := q.Decoded(ctx)
		if err != nil {
			t.Fatalf("Decoded failed: %v", err)
		}
		if diff := cmp.Diff(got, fromBytes); diff != "" {
			t.Errorf("encoded and decoded forms diverged (-decoded +bytes):\n%s", diff)
		}
	})

	t.Run("Nonconforming bytes fail decode", func(t *testing.T) {
		p, _ := New(42, []byte{}, nil, WithResolver(newCountingResolver(t)))
		if _, err := p.Decoded(ctx); !errors.Is(err, ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("Nonconforming data fails encode and caches nothing", func(t *testing.T) {
		resolver := newCountingResolver(t)
		data := Data{"param1": "a"}
		p, _ := New(42, nil, data, WithResolver(resolver))

		if _, err := p.Encoded(ctx); !errors.Is(err, ErrEncode) {
			t.Fatalf("expected ErrEncode, got %v", err)
		}
		if _, err := p.Encoded(ctx); !errors.Is(err, ErrEncode) {
			t.Errorf("expected ErrEncode on retry, got %v", err)
		}
		if resolver.calls.Load() != 2 {
			t.Errorf("expected retry to resolve again, got %d resolutions", resolver.calls.Load())
		}
	})
}
