package schema

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect does not dial, so collection naming can be checked offline.
func newMongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })
	return client.Database("pipeline")
}

func TestMongoStoreOptions(t *testing.T) {
	db := newMongoDatabase(t)

	t.Run("Default collection", func(t *testing.T) {
		if got := NewMongoStore(db).Collection().Name(); got != "avro_schemas" {
			t.Errorf("expected avro_schemas, got %s", got)
		}
	})

	t.Run("Custom collection", func(t *testing.T) {
		store := NewMongoStore(db, WithCollectionName("schemas"))
		if got := store.Collection().Name(); got != "schemas" {
			t.Errorf("expected schemas, got %s", got)
		}
		if got := store.Collection().Database().Name(); got != "pipeline" {
			t.Errorf("expected pipeline, got %s", got)
		}
	})

	t.Run("Empty name keeps default", func(t *testing.T) {
		if got := NewMongoStore(db, WithCollectionName("")).Collection().Name(); got != "avro_schemas" {
			t.Errorf("expected avro_schemas, got %s", got)
		}
	})

	t.Run("Closed store", func(t *testing.T) {
		store := NewMongoStore(db)
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if _, err := store.Get(context.Background(), 42); !errors.Is(err, ErrStoreClosed) {
			t.Errorf("expected ErrStoreClosed, got %v", err)
		}
	})
}
