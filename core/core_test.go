package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmark/driftmark/battle"
	"github.com/driftmark/driftmark/config"
	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/store/memstore"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	// Keep the periodic jobs quiet so tests drive ticks and flushes manually.
	cfg.Persistence.Auto = false
	cfg.Battle.TickIntervalMs = 3600000
	cfg.World.Width = 1000
	cfg.World.Height = 1000
	cfg.Battle.EngagementRange = 100
	cfg.Battle.MinTeleportDistance = 50
	return cfg
}

func newTestCore(t *testing.T) (*Core, *memstore.Backend) {
	t.Helper()
	backend := memstore.New()
	c := New(testConfig(), backend)
	require.NoError(t, c.Initialize(context.Background()))
	t.Cleanup(func() {
		if c.cron != nil {
			<-c.cron.Stop().Done()
		}
	})
	return c, backend
}

func fighter(id int64, name string, x, y float64) *model.User {
	return &model.User{
		ID:   id,
		Name: name,
		Ship: &model.Ship{
			X: x, Y: y,
			Speed:         10,
			CargoCapacity: 100,
			Resource:      50,
			Weapons: []model.Weapon{
				{Name: "laser", Count: 1, DamagePerShot: 500, ReloadSeconds: 10},
			},
		},
	}
}

func TestInitializeCreatesWorldFromConfig(t *testing.T) {
	c, _ := newTestCore(t)

	w, err := c.GetWorld(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, w.Width)
	assert.Equal(t, 1000.0, w.Height)
}

func TestInitializeLoadsExistingWorld(t *testing.T) {
	backend := memstore.New()
	c := New(testConfig(), backend)
	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.Shutdown(context.Background()))

	// A second boot must load the persisted record, not recreate it.
	cfg := testConfig()
	cfg.World.Width = 9999
	c2 := New(cfg, backend)
	require.NoError(t, c2.Initialize(context.Background()))
	defer c2.Shutdown(context.Background())

	w, err := c2.GetWorld(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1000.0, w.Width)
}

func TestCreateAndGetUser(t *testing.T) {
	c, _ := newTestCore(t)

	require.NoError(t, c.CreateUser(context.Background(), fighter(1, "kess", 100, 100)))

	u, err := c.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "kess", u.Name)
	// Creation fills the defense stack from tech.
	assert.Equal(t, model.BaseHull, u.Ship.Defense.Hull.Cur)
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	c, _ := newTestCore(t)
	require.NoError(t, c.CreateUser(context.Background(), fighter(1, "kess", 100, 100)))

	err := c.CreateUser(context.Background(), fighter(1, "kess again", 0, 0))
	require.Error(t, err)
}

func TestGetUserReturnsCopy(t *testing.T) {
	c, _ := newTestCore(t)
	require.NoError(t, c.CreateUser(context.Background(), fighter(1, "kess", 100, 100)))

	u, err := c.GetUser(context.Background(), 1)
	require.NoError(t, err)
	u.Ship.Resource = 9999

	again, err := c.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), again.Ship.Resource)
}

func TestUpdateUserKeepsBattleboundShipsStopped(t *testing.T) {
	c, _ := newTestCore(t)
	require.NoError(t, c.CreateUser(context.Background(), fighter(1, "kess", 100, 100)))
	require.NoError(t, c.CreateUser(context.Background(), fighter(2, "vor", 103, 104)))

	_, err := c.InitiateBattle(context.Background(), 1, 2)
	require.NoError(t, err)

	u, err := c.UpdateUser(context.Background(), 1, func(u *model.User) error {
		u.Ship.Speed = 25
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, u.Ship.Speed)
}

func TestPostAndReadMessages(t *testing.T) {
	c, _ := newTestCore(t)
	require.NoError(t, c.CreateUser(context.Background(), fighter(1, "kess", 100, 100)))

	require.NoError(t, c.PostMessage(context.Background(), 1, "welcome aboard"))

	msgs, err := c.MessagesFor(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "welcome aboard", msgs[0].Text)
	assert.NotEmpty(t, msgs[0].ID)
}

func TestBattleLifecycleThroughTicks(t *testing.T) {
	c, _ := newTestCore(t)
	require.NoError(t, c.CreateUser(context.Background(), fighter(1, "kess", 100, 100)))
	require.NoError(t, c.CreateUser(context.Background(), fighter(2, "vor", 103, 104)))

	b, err := c.InitiateBattle(context.Background(), 1, 2)
	require.NoError(t, err)

	_, err = c.InitiateBattle(context.Background(), 1, 2)
	require.Error(t, err)
	assert.True(t, battle.IsAlreadyInBattle(err))

	// One tick: the attacker one-shots the default defense stack and the
	// battle resolves in the same sweep.
	require.NoError(t, c.TickBattles(context.Background()))

	stored, err := c.GetBattle(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, stored.Ended())
	assert.Equal(t, int64(1), stored.WinnerID)

	winner, err := c.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, winner.InBattle)
	assert.Equal(t, int64(100), winner.Ship.Resource)

	w, err := c.GetWorld(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.BattlesResolved)
	assert.Equal(t, int64(1), w.ShotsFired)
}

func TestShutdownFlushesDirtyState(t *testing.T) {
	backend := memstore.New()
	c := New(testConfig(), backend)
	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.CreateUser(context.Background(), fighter(1, "kess", 100, 100)))

	require.NoError(t, c.Shutdown(context.Background()))

	// World and user both reached the store.
	u, err := c.store.LoadUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "kess", u.Name)
	_, err = c.store.LoadWorld(context.Background())
	require.NoError(t, err)
}
