// Package sqlite is the SQLite storage backend, used for local development
// and tests. Same single-table layout as the PostgreSQL backend with a TEXT
// payload. The pure-Go driver needs no cgo; ":memory:" DSNs work.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/store"
)

// Ensure Backend implements store.Backend
var _ store.Backend = (*Backend)(nil)

// Backend wraps a SQLite database with the raw storage contract.
type Backend struct {
	conn *sql.DB
	path string
}

// New opens or creates the SQLite database at path.
func New(path string) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The driver serializes access per connection; a single connection
	// avoids table-lock contention between writers.
	conn.SetMaxOpenConns(1)

	return &Backend{conn: conn, path: path}, nil
}

// Close closes the database
func (b *Backend) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// InitSchema initializes the database schema for entity persistence
func (b *Backend) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS driftmark_entities (
		kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (kind, entity_id)
	);
	`

	if _, err := b.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Load retrieves an entity from the database, or store.ErrNotFound
func (b *Backend) Load(ctx context.Context, kind model.Kind, id string) ([]byte, error) {
	if err := validateKey(kind, id); err != nil {
		return nil, err
	}

	query := `SELECT data FROM driftmark_entities WHERE kind = ? AND entity_id = ?`

	var data []byte
	err := b.conn.QueryRowContext(ctx, query, string(kind), id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, id, err)
	}

	return data, nil
}

// Upsert writes an entity to the database, replacing any existing row
func (b *Backend) Upsert(ctx context.Context, kind model.Kind, id string, data []byte) error {
	if err := validateKey(kind, id); err != nil {
		return err
	}
	if data == nil {
		data = []byte("{}")
	}

	query := `
		INSERT INTO driftmark_entities (kind, entity_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, entity_id) DO UPDATE
		SET data = excluded.data, updated_at = excluded.updated_at
	`

	now := time.Now()
	if _, err := b.conn.ExecContext(ctx, query, string(kind), id, data, now, now); err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", kind, id, err)
	}
	return nil
}

// Delete removes an entity from the database
func (b *Backend) Delete(ctx context.Context, kind model.Kind, id string) error {
	if err := validateKey(kind, id); err != nil {
		return err
	}

	query := `DELETE FROM driftmark_entities WHERE kind = ? AND entity_id = ?`
	result, err := b.conn.ExecContext(ctx, query, string(kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func validateKey(kind model.Kind, id string) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("entity_id cannot be empty")
	}
	return nil
}
