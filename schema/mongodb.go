package schema

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
MongoDB Schema:

Collection: avro_schemas

Document structure:
{
    "_id": int,          // schema id
    "definition": string,
    "namespace": string,
    "source": string,
    "created_at": ISODate
}

Indexes:
db.avro_schemas.createIndex({"namespace": 1, "source": 1})
*/

// mongoSchema represents a schema document in MongoDB.
type mongoSchema struct {
	ID         int       `bson:"_id"`
	Definition string    `bson:"definition"`
	Namespace  string    `bson:"namespace,omitempty"`
	Source     string    `bson:"source,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (m *mongoSchema) toSchema() *Schema {
	return &Schema{
		ID:         ID(m.ID),
		Definition: m.Definition,
		Namespace:  m.Namespace,
		Source:     m.Source,
		CreatedAt:  m.CreatedAt,
	}
}

func fromSchema(s *Schema) *mongoSchema {
	return &mongoSchema{
		ID:         int(s.ID),
		Definition: s.Definition,
		Namespace:  s.Namespace,
		Source:     s.Source,
		CreatedAt:  s.CreatedAt,
	}
}

// MongoStore implements Store using MongoDB.
//
// Set inserts rather than upserts: the unique _id index makes concurrent
// registrations of the same id resolve to a single winner.
//
// Example:
//
//	client, _ := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://localhost:27017"))
//	store := schema.NewMongoStore(client.Database("pipeline"), schema.WithCollectionName("schemas"))
//	defer store.Close()
type MongoStore struct {
	collection *mongo.Collection
	mu         sync.RWMutex
	closed     bool
}

// MongoOption configures MongoStore.
type MongoOption func(*mongoOptions)

type mongoOptions struct {
	collection string
}

// WithCollectionName sets a custom collection name (default: "avro_schemas").
func WithCollectionName(name string) MongoOption {
	return func(o *mongoOptions) {
		if name != "" {
			o.collection = name
		}
	}
}

// NewMongoStore creates a new MongoDB-based schema store.
func NewMongoStore(db *mongo.Database, opts ...MongoOption) *MongoStore {
	o := &mongoOptions{collection: "avro_schemas"}
	for _, opt := range opts {
		opt(o)
	}
	return &MongoStore{
		collection: db.Collection(o.collection),
	}
}

// Collection returns the underlying MongoDB collection.
func (p *MongoStore) Collection() *mongo.Collection {
	return p.collection
}

// Indexes returns the required indexes.
func (p *MongoStore) Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "namespace", Value: 1}, {Key: "source", Value: 1}},
		},
	}
}

// EnsureIndexes creates the required indexes.
func (p *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := p.collection.Indexes().CreateMany(ctx, p.Indexes())
	return err
}

func (p *MongoStore) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Get retrieves a schema by id.
func (p *MongoStore) Get(ctx context.Context, id ID) (*Schema, error) {
	if p.isClosed() {
		return nil, ErrStoreClosed
	}

	var m mongoSchema
	err := p.collection.FindOne(ctx, bson.M{"_id": int(id)}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schema: %w", err)
	}
	return m.toSchema(), nil
}

// Set registers a schema.
func (p *MongoStore) Set(ctx context.Context, schema *Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if p.isClosed() {
		return ErrStoreClosed
	}

	s, err := register(nil, schema, time.Now())
	if err != nil {
		return err
	}

	_, err = p.collection.InsertOne(ctx, fromSchema(s))
	if mongo.IsDuplicateKeyError(err) {
		existing, getErr := p.Get(ctx, schema.ID)
		if getErr != nil {
			return getErr
		}
		_, err = register(existing, schema, time.Now())
		return err
	}
	if err != nil {
		return fmt.Errorf("set schema: %w", err)
	}
	return nil
}

// Delete removes a schema.
func (p *MongoStore) Delete(ctx context.Context, id ID) error {
	if p.isClosed() {
		return ErrStoreClosed
	}

	if _, err := p.collection.DeleteOne(ctx, bson.M{"_id": int(id)}); err != nil {
		return fmt.Errorf("delete schema: %w", err)
	}
	return nil
}

// List returns all schemas ordered by id.
func (p *MongoStore) List(ctx context.Context) ([]*Schema, error) {
	if p.isClosed() {
		return nil, ErrStoreClosed
	}

	cursor, err := p.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer cursor.Close(ctx)

	var schemas []*Schema
	for cursor.Next(ctx) {
		var m mongoSchema
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode schema: %w", err)
		}
		schemas = append(schemas, m.toSchema())
	}
	return schemas, cursor.Err()
}

// Close closes the store. The MongoDB client is owned by the caller.
func (p *MongoStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Compile-time check that MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
