package schematizer

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"
)

func TestSourceModel(t *testing.T) {
	resp := &SourceResponse{
		SourceID:   12,
		Name:       "user",
		OwnerEmail: "owner@example.com",
		Namespace:  &NamespaceResponse{NamespaceID: 3, Name: "main"},
	}

	t.Run("fromResponse to toResult", func(t *testing.T) {
		m, err := sourceFromResponse(resp)
		if err != nil {
			t.Fatalf("sourceFromResponse failed: %v", err)
		}
		if diff := cmp.Diff(wantSource, m.toResult()); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Cache value survives encoding", func(t *testing.T) {
		m, _ := sourceFromResponse(resp)
		b, err := msgpack.Marshal(m.toCacheValue())
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		var cv sourceCacheValue
		if err := msgpack.Unmarshal(b, &cv); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if diff := cmp.Diff(wantSource, sourceFromCacheValue(cv).toResult()); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Nil response", func(t *testing.T) {
		if _, err := sourceFromResponse(nil); !errors.Is(err, ErrNilResponse) {
			t.Errorf("expected ErrNilResponse, got %v", err)
		}
	})
}

func TestSchemaModel(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("fromResponse validates", func(t *testing.T) {
		if _, err := schemaFromResponse(&SchemaResponse{SchemaID: 0, Schema: `"string"`}, now); err == nil {
			t.Error("expected invalid id error")
		}
		if _, err := schemaFromResponse(nil, now); !errors.Is(err, ErrNilResponse) {
			t.Errorf("expected ErrNilResponse, got %v", err)
		}
	})

	t.Run("Cache value round trip", func(t *testing.T) {
		s, err := schemaFromResponse(&SchemaResponse{SchemaID: 42, Schema: userDefinition}, now)
		if err != nil {
			t.Fatalf("schemaFromResponse failed: %v", err)
		}
		b, _ := msgpack.Marshal(schemaToCacheValue(s))
		var cv schemaCacheValue
		if err := msgpack.Unmarshal(b, &cv); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		got := schemaFromCacheValue(cv)
		if got.ID != 42 || got.Definition != userDefinition || !got.CreatedAt.Equal(now) {
			t.Errorf("unexpected schema %+v", got)
		}
	})
}
