// Package memstore is an in-memory storage backend for tests. It implements
// the same contract as the SQL backends and can inject write failures to
// exercise flush retry behavior.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/store"
)

// Ensure Backend implements store.Backend
var _ store.Backend = (*Backend)(nil)

type key struct {
	kind model.Kind
	id   string
}

// Backend holds entities in a map guarded by a mutex.
type Backend struct {
	mu       sync.Mutex
	entities map[key][]byte

	// failUpserts makes every Upsert fail while set, for flush retry tests.
	failUpserts bool

	loads   int
	upserts int
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{entities: make(map[key][]byte)}
}

// InitSchema is a no-op.
func (b *Backend) InitSchema(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

// Load retrieves an entity, or store.ErrNotFound.
func (b *Backend) Load(ctx context.Context, kind model.Kind, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.loads++
	data, ok := b.entities[key{kind, id}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Upsert writes an entity.
func (b *Backend) Upsert(ctx context.Context, kind model.Kind, id string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.upserts++
	if b.failUpserts {
		return fmt.Errorf("injected upsert failure for %s %s", kind, id)
	}
	b.entities[key{kind, id}] = append([]byte(nil), data...)
	return nil
}

// Delete removes an entity, or returns store.ErrNotFound.
func (b *Backend) Delete(ctx context.Context, kind model.Kind, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{kind, id}
	if _, ok := b.entities[k]; !ok {
		return store.ErrNotFound
	}
	delete(b.entities, k)
	return nil
}

// SetFailUpserts toggles injected write failures.
func (b *Backend) SetFailUpserts(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failUpserts = fail
}

// Len returns the number of stored entities.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entities)
}

// Counts returns the number of Load and Upsert calls seen.
func (b *Backend) Counts() (loads, upserts int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads, b.upserts
}
