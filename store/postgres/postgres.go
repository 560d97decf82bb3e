// Package postgres is the PostgreSQL storage backend. Entities are stored in
// a single table keyed by (kind, entity_id) with a JSONB payload.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/store"
)

// Ensure Backend implements store.Backend
var _ store.Backend = (*Backend)(nil)

// Backend wraps a PostgreSQL connection with the raw storage contract.
type Backend struct {
	conn   *sql.DB
	config *Config
}

// New creates a new backend using the provided configuration.
func New(config *Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	conn, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return &Backend{
		conn:   conn,
		config: config,
	}, nil
}

// Close closes the database connection
func (b *Backend) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (b *Backend) Ping(ctx context.Context) error {
	return b.conn.PingContext(ctx)
}

// InitSchema initializes the database schema for entity persistence
func (b *Backend) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS driftmark_entities (
		kind VARCHAR(32) NOT NULL,
		entity_id VARCHAR(255) NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, entity_id)
	);

	CREATE INDEX IF NOT EXISTS idx_driftmark_entities_updated_at ON driftmark_entities(updated_at);
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

	query := `
		SELECT data
		FROM driftmark_entities
		WHERE kind = $1 AND entity_id = $2
	`

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
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (kind, entity_id) DO UPDATE
		SET data = $3, updated_at = $4
	`

	now := time.Now()
	if _, err := b.conn.ExecContext(ctx, query, string(kind), id, data, now); err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", kind, id, err)
	}
	return nil
}

// Delete removes an entity from the database
func (b *Backend) Delete(ctx context.Context, kind model.Kind, id string) error {
	if err := validateKey(kind, id); err != nil {
		return err
	}

	query := `DELETE FROM driftmark_entities WHERE kind = $1 AND entity_id = $2`
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
