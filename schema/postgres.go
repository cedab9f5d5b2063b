package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// PostgresStore implements Store using PostgreSQL.
//
// Table Schema:
//
//	CREATE TABLE avro_schemas (
//	    id INT PRIMARY KEY,
//	    definition TEXT NOT NULL,
//	    namespace TEXT,
//	    source TEXT,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
// Example:
//
//	db, _ := sql.Open("postgres", connString)
//	store := schema.NewPostgresStore(db)
//	defer store.Close()
type PostgresStore struct {
	db        *sql.DB
	tableName string
	mu        sync.RWMutex
	closed    bool
}

// PostgresOption configures PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTableName sets a custom table name (default: "avro_schemas").
func WithTableName(name string) PostgresOption {
	return func(p *PostgresStore) {
		if name != "" {
			p.tableName = name
		}
	}
}

// NewPostgresStore creates a new PostgreSQL-based schema store.
// The database handle and its driver are owned by the caller.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	p := &PostgresStore{
		db:        db,
		tableName: "avro_schemas",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PostgresStore) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Get retrieves a schema by id.
func (p *PostgresStore) Get(ctx context.Context, id ID) (*Schema, error) {
	if p.isClosed() {
		return nil, ErrStoreClosed
	}

	query := fmt.Sprintf(`
		SELECT id, definition, namespace, source, created_at
		FROM %s
		WHERE id = $1
	`, p.tableName)

	s, err := scanSchema(p.db.QueryRowContext(ctx, query, int(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schema: %w", err)
	}
	return s, nil
}

// Set registers a schema.
func (p *PostgresStore) Set(ctx context.Context, schema *Schema) error {
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

	query := fmt.Sprintf(`
		INSERT INTO %s (id, definition, namespace, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, p.tableName)

	res, err := p.db.ExecContext(ctx, query,
		int(s.ID),
		s.Definition,
		nullString(s.Namespace),
		nullString(s.Source),
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("set schema: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		existing, err := p.Get(ctx, schema.ID)
		if err != nil {
			return err
		}
		_, err = register(existing, schema, time.Now())
		return err
	}
	return nil
}

// Delete removes a schema.
func (p *PostgresStore) Delete(ctx context.Context, id ID) error {
	if p.isClosed() {
		return ErrStoreClosed
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.tableName)
	if _, err := p.db.ExecContext(ctx, query, int(id)); err != nil {
		return fmt.Errorf("delete schema: %w", err)
	}
	return nil
}

// List returns all schemas ordered by id.
func (p *PostgresStore) List(ctx context.Context) ([]*Schema, error) {
	if p.isClosed() {
		return nil, ErrStoreClosed
	}

	query := fmt.Sprintf(`
		SELECT id, definition, namespace, source, created_at
		FROM %s
		ORDER BY id
	`, p.tableName)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []*Schema
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		schemas = append(schemas, s)
	}
	return schemas, rows.Err()
}

// Close closes the store. The database handle is owned by the caller.
func (p *PostgresStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// CreateTable creates the schema table if it doesn't exist.
// This is a convenience method for development and testing.
func (p *PostgresStore) CreateTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INT PRIMARY KEY,
			definition TEXT NOT NULL,
			namespace TEXT,
			source TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_%s_source ON %s(namespace, source);
	`, p.tableName, p.tableName, p.tableName)

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchema(row scanner) (*Schema, error) {
	var (
		s         Schema
		id        int
		namespace sql.NullString
		source    sql.NullString
	)
	if err := row.Scan(&id, &s.Definition, &namespace, &source, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.ID = ID(id)
	s.Namespace = namespace.String
	s.Source = source.String
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
