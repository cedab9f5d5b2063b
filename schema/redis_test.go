package schema

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	testStore(t, NewRedisStore(client, WithKey("test:schemas")))

	t.Run("Stores JSON under the configured key", func(t *testing.T) {
		ctx := context.Background()
		store := NewRedisStore(client, WithKey("other:schemas"))
		if err := store.Set(ctx, &Schema{ID: 3, Definition: `"string"`}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if !mr.Exists("other:schemas") {
			t.Fatal("expected hash key other:schemas")
		}
		if got := mr.HGet("other:schemas", "3"); got == "" {
			t.Error("expected field 3 in hash")
		}
	})
}
