package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/store"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.InitSchema(context.Background()))
	return b
}

func TestLoadMissing(t *testing.T) {
	b := newBackend(t)

	_, err := b.Load(context.Background(), model.KindUser, "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertThenLoad(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Upsert(ctx, model.KindUser, "1", []byte(`{"id":1}`)))

	data, err := b.Load(ctx, model.KindUser, "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(data))
}

func TestUpsertReplaces(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Upsert(ctx, model.KindWorld, "1", []byte(`{"width":100}`)))
	require.NoError(t, b.Upsert(ctx, model.KindWorld, "1", []byte(`{"width":200}`)))

	data, err := b.Load(ctx, model.KindWorld, "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"width":200}`, string(data))
}

func TestKindsDoNotCollide(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Upsert(ctx, model.KindUser, "1", []byte(`{"kind":"user"}`)))
	require.NoError(t, b.Upsert(ctx, model.KindMessage, "1", []byte(`[{"kind":"message"}]`)))

	data, err := b.Load(ctx, model.KindUser, "1")
	require.NoError(t, err)
	assert.Contains(t, string(data), "user")

	data, err = b.Load(ctx, model.KindMessage, "1")
	require.NoError(t, err)
	assert.Contains(t, string(data), "message")
}

func TestDelete(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Upsert(ctx, model.KindBattle, "b-1", []byte(`{}`)))
	require.NoError(t, b.Delete(ctx, model.KindBattle, "b-1"))

	_, err := b.Load(ctx, model.KindBattle, "b-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, model.KindBattle, "b-1"), store.ErrNotFound)
}

func TestInvalidKindRejected(t *testing.T) {
	b := newBackend(t)

	_, err := b.Load(context.Background(), model.Kind("starbase"), "1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestFileBackedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftmark.db")
	ctx := context.Background()

	b, err := New(path)
	require.NoError(t, err)
	require.NoError(t, b.InitSchema(ctx))
	require.NoError(t, b.Upsert(ctx, model.KindUser, "9", []byte(`{"id":9}`)))
	require.NoError(t, b.Close())

	// Reopen and verify the row survived.
	b, err = New(path)
	require.NoError(t, err)
	defer b.Close()

	data, err := b.Load(ctx, model.KindUser, "9")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9}`, string(data))
}
