package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/store"
	"github.com/driftmark/driftmark/store/memstore"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(memstore.New())
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u := &model.User{ID: 42, Name: "kess", Ship: &model.Ship{X: 10, Y: 20, CargoCapacity: 100}}
	require.NoError(t, s.UpsertUser(ctx, u))

	got, err := s.LoadUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestLoadUserNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.LoadUser(context.Background(), 7)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertReplacesExisting(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: 1, Name: "before"}))
	require.NoError(t, s.UpsertUser(ctx, &model.User{ID: 1, Name: "after"}))

	got, err := s.LoadUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
}

func TestWorldRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	w := &model.World{Width: 1000, Height: 800, BattlesResolved: 3}
	require.NoError(t, s.UpsertWorld(ctx, w))

	got, err := s.LoadWorld(ctx)
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestBattleRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	b := &model.Battle{ID: "b-9", AttackerID: 1, AttackeeID: 2}
	b.AppendEvent(model.Event{Type: model.EventStarted})
	require.NoError(t, s.UpsertBattle(ctx, b))

	got, err := s.LoadBattle(ctx, "b-9")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Len(t, got.Log, 1)
}

func TestDeleteBattle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertBattle(ctx, &model.Battle{ID: "gone"}))
	require.NoError(t, s.DeleteBattle(ctx, "gone"))

	_, err := s.LoadBattle(ctx, "gone")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteBattle(ctx, "gone"), store.ErrNotFound)
}

func TestMessagesRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	msgs := []model.Message{{ID: "m1", Text: "under attack"}}
	require.NoError(t, s.UpsertMessages(ctx, 5, msgs))

	got, err := s.LoadMessages(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestEmptyMessageListPersists(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMessages(ctx, 6, nil))
	got, err := s.LoadMessages(ctx, 6)
	require.NoError(t, err)
	assert.Empty(t, got)
}
