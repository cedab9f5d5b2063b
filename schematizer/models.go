package schematizer

import (
	"fmt"
	"time"

	"github.com/rbaliyan/datapipeline/schema"
)

// Namespace groups sources, e.g. a database or a service.
type Namespace struct {
	NamespaceID int
	Name        string
}

// Source is a sub-group of a namespace that Avro schemas are created for,
// e.g. a table.
type Source struct {
	SourceID   int
	Name       string
	OwnerEmail string
	Namespace  Namespace
}

// namespaceModel is the client-side model of a namespace.
type namespaceModel struct {
	namespaceID int
	name        string
}

type namespaceCacheValue struct {
	NamespaceID int    `msgpack:"namespace_id"`
	Name        string `msgpack:"name"`
}

func namespaceFromResponse(r *NamespaceResponse) (*namespaceModel, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: namespace", ErrNilResponse)
	}
	return &namespaceModel{namespaceID: r.NamespaceID, name: r.Name}, nil
}

func (m *namespaceModel) toCacheValue() namespaceCacheValue {
	return namespaceCacheValue{NamespaceID: m.namespaceID, Name: m.name}
}

func namespaceFromCacheValue(v namespaceCacheValue) *namespaceModel {
	return &namespaceModel{namespaceID: v.NamespaceID, name: v.Name}
}

func (m *namespaceModel) toResult() Namespace {
	return Namespace{NamespaceID: m.namespaceID, Name: m.name}
}

// sourceModel is the client-side model of a source.
type sourceModel struct {
	sourceID   int
	name       string
	ownerEmail string
	namespace  *namespaceModel
}

type sourceCacheValue struct {
	SourceID   int                 `msgpack:"source_id"`
	Name       string              `msgpack:"name"`
	OwnerEmail string              `msgpack:"owner_email"`
	Namespace  namespaceCacheValue `msgpack:"namespace"`
}

func sourceFromResponse(r *SourceResponse) (*sourceModel, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: source", ErrNilResponse)
	}
	ns, err := namespaceFromResponse(r.Namespace)
	if err != nil {
		return nil, fmt.Errorf("source %d: %w", r.SourceID, err)
	}
	return &sourceModel{
		sourceID:   r.SourceID,
		name:       r.Name,
		ownerEmail: r.OwnerEmail,
		namespace:  ns,
	}, nil
}

func (m *sourceModel) toCacheValue() sourceCacheValue {
	return sourceCacheValue{
		SourceID:   m.sourceID,
		Name:       m.name,
		OwnerEmail: m.ownerEmail,
		Namespace:  m.namespace.toCacheValue(),
	}
}

func sourceFromCacheValue(v sourceCacheValue) *sourceModel {
	return &sourceModel{
		sourceID:   v.SourceID,
		name:       v.Name,
		ownerEmail: v.OwnerEmail,
		namespace:  namespaceFromCacheValue(v.Namespace),
	}
}

func (m *sourceModel) toResult() Source {
	return Source{
		SourceID:   m.sourceID,
		Name:       m.name,
		OwnerEmail: m.ownerEmail,
		Namespace:  m.namespace.toResult(),
	}
}

type schemaCacheValue struct {
	SchemaID   int       `msgpack:"schema_id"`
	Definition string    `msgpack:"definition"`
	Namespace  string    `msgpack:"namespace,omitempty"`
	Source     string    `msgpack:"source,omitempty"`
	CreatedAt  time.Time `msgpack:"created_at"`
}

func schemaFromResponse(r *SchemaResponse, now time.Time) (*schema.Schema, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: schema", ErrNilResponse)
	}
	s := &schema.Schema{
		ID:         schema.ID(r.SchemaID),
		Definition: r.Schema,
		CreatedAt:  now,
	}
	if r.Source != nil {
		s.Source = r.Source.Name
		if r.Source.Namespace != nil {
			s.Namespace = r.Source.Namespace.Name
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func schemaToCacheValue(s *schema.Schema) schemaCacheValue {
	return schemaCacheValue{
		SchemaID:   int(s.ID),
		Definition: s.Definition,
		Namespace:  s.Namespace,
		Source:     s.Source,
		CreatedAt:  s.CreatedAt,
	}
}

func schemaFromCacheValue(v schemaCacheValue) *schema.Schema {
	return &schema.Schema{
		ID:         schema.ID(v.SchemaID),
		Definition: v.Definition,
		Namespace:  v.Namespace,
		Source:     v.Source,
		CreatedAt:  v.CreatedAt,
	}
}
