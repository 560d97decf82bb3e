// Package store is the durable-store boundary. A Backend supplies the raw
// per-kind load/upsert/delete contract over whatever engine it likes
// (PostgreSQL, SQLite, memory); Store wraps one Backend with the typed
// entity codecs used by the cache layer.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/driftmark/driftmark/model"
)

// ErrNotFound is returned when an entity is absent from the durable store.
var ErrNotFound = errors.New("entity not found")

// Backend is the raw storage contract. Data is the JSON encoding of the
// entity; implementations treat it as opaque.
type Backend interface {
	Load(ctx context.Context, kind model.Kind, id string) ([]byte, error)
	Upsert(ctx context.Context, kind model.Kind, id string, data []byte) error
	Delete(ctx context.Context, kind model.Kind, id string) error
	InitSchema(ctx context.Context) error
	Close() error
}

// Store provides typed access to one Backend.
type Store struct {
	backend Backend
}

// New wraps a backend with the typed entity contract.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// InitSchema initializes the backend schema.
func (s *Store) InitSchema(ctx context.Context) error {
	return s.backend.InitSchema(ctx)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// UserKey converts a user id to its storage key.
func UserKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// LoadUser loads one user record, or ErrNotFound.
func (s *Store) LoadUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.load(ctx, model.KindUser, UserKey(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser writes one user record.
func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	return s.upsert(ctx, model.KindUser, UserKey(u.ID), u)
}

// DeleteUser removes one user record.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.backend.Delete(ctx, model.KindUser, UserKey(id))
}

// LoadWorld loads the world singleton, or ErrNotFound.
func (s *Store) LoadWorld(ctx context.Context) (*model.World, error) {
	var w model.World
	if err := s.load(ctx, model.KindWorld, UserKey(model.WorldID), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// UpsertWorld writes the world singleton.
func (s *Store) UpsertWorld(ctx context.Context, w *model.World) error {
	return s.upsert(ctx, model.KindWorld, UserKey(model.WorldID), w)
}

// LoadBattle loads one battle record, or ErrNotFound.
func (s *Store) LoadBattle(ctx context.Context, id string) (*model.Battle, error) {
	var b model.Battle
	if err := s.load(ctx, model.KindBattle, id, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertBattle writes one battle record, active or terminal.
func (s *Store) UpsertBattle(ctx context.Context, b *model.Battle) error {
	return s.upsert(ctx, model.KindBattle, b.ID, b)
}

// DeleteBattle removes one battle record.
func (s *Store) DeleteBattle(ctx context.Context, id string) error {
	return s.backend.Delete(ctx, model.KindBattle, id)
}

// LoadMessages loads one user's message list, or ErrNotFound.
func (s *Store) LoadMessages(ctx context.Context, userID int64) ([]model.Message, error) {
	var msgs []model.Message
	if err := s.load(ctx, model.KindMessage, UserKey(userID), &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// UpsertMessages writes one user's message list.
func (s *Store) UpsertMessages(ctx context.Context, userID int64, msgs []model.Message) error {
	if msgs == nil {
		msgs = []model.Message{}
	}
	return s.upsert(ctx, model.KindMessage, UserKey(userID), msgs)
}

// DeleteMessages removes one user's message list.
func (s *Store) DeleteMessages(ctx context.Context, userID int64) error {
	return s.backend.Delete(ctx, model.KindMessage, UserKey(userID))
}

func (s *Store) load(ctx context.Context, kind model.Kind, id string, out interface{}) error {
	data, err := s.backend.Load(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := model.DecodeEntity(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) upsert(ctx context.Context, kind model.Kind, id string, in interface{}) error {
	data, err := model.EncodeEntity(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", kind, id, err)
	}
	return s.backend.Upsert(ctx, kind, id, data)
}
