// Package cache holds the authoritative in-memory copies of world, user,
// battle, and message state, with write-behind persistence.
//
// Each entity kind is gated by exactly one lock level. The Unsafe accessors
// never lock: they verify that the caller's lockorder.Context already holds
// the kind's level and fail loudly otherwise. Composite operations (move a
// resource between two users, resolve a battle touching three kinds) hold the
// levels once across many accessor calls instead of re-entering.
//
// Every mutation adds the entity id to the kind's dirty set; the flush loop
// writes dirty ids to the durable store and clears an id only after its write
// succeeded, so a failed write is retried on the next tick.
package cache

import (
	"context"
	"sort"

	"github.com/driftmark/driftmark/lockorder"
	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/store"
	"github.com/driftmark/driftmark/util/logger"
	"github.com/driftmark/driftmark/util/metrics"
)

// Caches is the registry of all entity caches. Pass one handle through all
// entry points; there is no process-wide instance.
type Caches struct {
	store  *store.Store
	logger *logger.Logger

	battleMu  *lockorder.Mutex
	userMu    *lockorder.Mutex
	worldMu   *lockorder.RWMutex
	messageMu *lockorder.RWMutex

	storeBattleMu  *lockorder.RWMutex
	storeUserMu    *lockorder.RWMutex
	storeWorldMu   *lockorder.RWMutex
	storeMessageMu *lockorder.RWMutex

	battles  map[string]*model.Battle
	users    map[int64]*model.User
	world    *model.World
	messages map[int64][]model.Message

	dirtyBattles  map[string]struct{}
	dirtyUsers    map[int64]struct{}
	dirtyWorld    bool
	dirtyMessages map[int64]struct{}
}

// New creates an empty cache registry over the given durable store.
func New(s *store.Store) *Caches {
	return &Caches{
		store:  s,
		logger: logger.NewLogger("cache"),

		battleMu:  lockorder.NewMutex(lockorder.LevelBattle),
		userMu:    lockorder.NewMutex(lockorder.LevelUser),
		worldMu:   lockorder.NewRWMutex(lockorder.LevelWorld),
		messageMu: lockorder.NewRWMutexSplit(lockorder.LevelMessageRead, lockorder.LevelMessageWrite),

		storeBattleMu:  lockorder.NewRWMutex(lockorder.LevelStoreBattle),
		storeUserMu:    lockorder.NewRWMutex(lockorder.LevelStoreUser),
		storeWorldMu:   lockorder.NewRWMutex(lockorder.LevelStoreWorld),
		storeMessageMu: lockorder.NewRWMutex(lockorder.LevelStoreMessage),

		battles:  make(map[string]*model.Battle),
		users:    make(map[int64]*model.User),
		messages: make(map[int64][]model.Message),

		dirtyBattles:  make(map[string]struct{}),
		dirtyUsers:    make(map[int64]struct{}),
		dirtyMessages: make(map[int64]struct{}),
	}
}

// Logger returns the cache logger, for level adjustment at startup.
func (c *Caches) Logger() *logger.Logger {
	return c.logger
}

// Store returns the durable store behind the caches.
func (c *Caches) Store() *store.Store {
	return c.store
}

// BattleLock returns the lock gating the active battle map.
func (c *Caches) BattleLock() *lockorder.Mutex { return c.battleMu }

// UserLock returns the lock gating the user cache.
func (c *Caches) UserLock() *lockorder.Mutex { return c.userMu }

// WorldLock returns the lock gating the world singleton.
func (c *Caches) WorldLock() *lockorder.RWMutex { return c.worldMu }

// MessageLock returns the lock gating per-user message lists.
func (c *Caches) MessageLock() *lockorder.RWMutex { return c.messageMu }

// --- users ---

// GetUserUnsafe returns the cached user, loading from the durable store on a
// miss. The caller must hold LevelUser. Concurrent misses for the same id on
// different kinds' paths are not deduplicated; the second insert wins.
func (c *Caches) GetUserUnsafe(ctx context.Context, lctx *lockorder.Context, id int64) (*model.User, error) {
	if !lctx.Holds(lockorder.LevelUser) {
		return nil, lockorder.NewNotHeldError(lockorder.LevelUser, false, lctx)
	}
	if u, ok := c.users[id]; ok {
		return u, nil
	}

	var loaded *model.User
	err := lockorder.WithRead(lctx, c.storeUserMu, func(*lockorder.Context) error {
		var err error
		loaded, err = c.store.LoadUser(ctx, id)
		return err
	})
	if err == store.ErrNotFound {
		return nil, NewNotFoundError(model.KindUser, store.UserKey(id))
	}
	if err != nil {
		return nil, err
	}

	c.users[id] = loaded
	metrics.SetCacheEntries(model.KindUser.String(), len(c.users))
	return loaded, nil
}

// MutateUserUnsafe runs fn against the live user record and marks it dirty.
// The caller must hold LevelUser.
func (c *Caches) MutateUserUnsafe(ctx context.Context, lctx *lockorder.Context, id int64, fn func(*model.User) error) error {
	u, err := c.GetUserUnsafe(ctx, lctx, id)
	if err != nil {
		return err
	}
	if err := fn(u); err != nil {
		return err
	}
	c.markUserDirty(id)
	return nil
}

// PutUserUnsafe inserts a user record and marks it dirty. The caller must
// hold LevelUser.
func (c *Caches) PutUserUnsafe(lctx *lockorder.Context, u *model.User) error {
	if !lctx.Holds(lockorder.LevelUser) {
		return lockorder.NewNotHeldError(lockorder.LevelUser, false, lctx)
	}
	c.users[u.ID] = u
	c.markUserDirty(u.ID)
	metrics.SetCacheEntries(model.KindUser.String(), len(c.users))
	return nil
}

func (c *Caches) markUserDirty(id int64) {
	c.dirtyUsers[id] = struct{}{}
	metrics.SetDirtyEntries(model.KindUser.String(), len(c.dirtyUsers))
}

// --- world ---

// GetWorldUnsafe returns the world singleton. The caller must hold
// LevelWorld in either mode. A miss under a write hold loads and caches; a
// miss under a read-only hold loads without inserting, since inserting would
// race with other readers.
func (c *Caches) GetWorldUnsafe(ctx context.Context, lctx *lockorder.Context) (*model.World, error) {
	if !lctx.Holds(lockorder.LevelWorld) {
		return nil, lockorder.NewNotHeldError(lockorder.LevelWorld, false, lctx)
	}
	if c.world != nil {
		return c.world, nil
	}

	var loaded *model.World
	err := lockorder.WithRead(lctx, c.storeWorldMu, func(*lockorder.Context) error {
		var err error
		loaded, err = c.store.LoadWorld(ctx)
		return err
	})
	if err == store.ErrNotFound {
		return nil, NewNotFoundError(model.KindWorld, store.UserKey(model.WorldID))
	}
	if err != nil {
		return nil, err
	}

	if lctx.HoldsWrite(lockorder.LevelWorld) {
		c.world = loaded
		metrics.SetCacheEntries(model.KindWorld.String(), 1)
	}
	return loaded, nil
}

// MutateWorldUnsafe runs fn against the live world record and marks it dirty.
// The caller must hold LevelWorld in write mode.
func (c *Caches) MutateWorldUnsafe(ctx context.Context, lctx *lockorder.Context, fn func(*model.World) error) error {
	if !lctx.HoldsWrite(lockorder.LevelWorld) {
		return lockorder.NewNotHeldError(lockorder.LevelWorld, true, lctx)
	}
	w, err := c.GetWorldUnsafe(ctx, lctx)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return err
	}
	c.dirtyWorld = true
	metrics.SetDirtyEntries(model.KindWorld.String(), 1)
	return nil
}

// PutWorldUnsafe installs the world singleton and marks it dirty. The caller
// must hold LevelWorld in write mode. Used at first boot when the store has
// no world record yet.
func (c *Caches) PutWorldUnsafe(lctx *lockorder.Context, w *model.World) error {
	if !lctx.HoldsWrite(lockorder.LevelWorld) {
		return lockorder.NewNotHeldError(lockorder.LevelWorld, true, lctx)
	}
	c.world = w
	c.dirtyWorld = true
	metrics.SetCacheEntries(model.KindWorld.String(), 1)
	metrics.SetDirtyEntries(model.KindWorld.String(), 1)
	return nil
}

// --- battles ---

// GetBattleUnsafe returns the cached battle, loading from the durable store
// on a miss. The caller must hold LevelBattle.
func (c *Caches) GetBattleUnsafe(ctx context.Context, lctx *lockorder.Context, id string) (*model.Battle, error) {
	if !lctx.Holds(lockorder.LevelBattle) {
		return nil, lockorder.NewNotHeldError(lockorder.LevelBattle, false, lctx)
	}
	if b, ok := c.battles[id]; ok {
		return b, nil
	}

	var loaded *model.Battle
	err := lockorder.WithRead(lctx, c.storeBattleMu, func(*lockorder.Context) error {
		var err error
		loaded, err = c.store.LoadBattle(ctx, id)
		return err
	})
	if err == store.ErrNotFound {
		return nil, NewNotFoundError(model.KindBattle, id)
	}
	if err != nil {
		return nil, err
	}

	c.battles[id] = loaded
	metrics.SetCacheEntries(model.KindBattle.String(), len(c.battles))
	metrics.SetActiveBattles(len(c.battles))
	return loaded, nil
}

// MutateBattleUnsafe runs fn against the live battle record and marks it
// dirty. The caller must hold LevelBattle.
func (c *Caches) MutateBattleUnsafe(ctx context.Context, lctx *lockorder.Context, id string, fn func(*model.Battle) error) error {
	b, err := c.GetBattleUnsafe(ctx, lctx, id)
	if err != nil {
		return err
	}
	if err := fn(b); err != nil {
		return err
	}
	c.markBattleDirty(id)
	return nil
}

// PutBattleUnsafe inserts a battle record and marks it dirty. The caller must
// hold LevelBattle.
func (c *Caches) PutBattleUnsafe(lctx *lockorder.Context, b *model.Battle) error {
	if !lctx.Holds(lockorder.LevelBattle) {
		return lockorder.NewNotHeldError(lockorder.LevelBattle, false, lctx)
	}
	c.battles[b.ID] = b
	c.markBattleDirty(b.ID)
	metrics.SetCacheEntries(model.KindBattle.String(), len(c.battles))
	metrics.SetActiveBattles(len(c.battles))
	return nil
}

// RemoveBattleUnsafe drops a battle from the active map and its dirty set.
// The terminal record must already be persisted; the write-behind loop will
// not see this id again. The caller must hold LevelBattle.
func (c *Caches) RemoveBattleUnsafe(lctx *lockorder.Context, id string) error {
	if !lctx.Holds(lockorder.LevelBattle) {
		return lockorder.NewNotHeldError(lockorder.LevelBattle, false, lctx)
	}
	delete(c.battles, id)
	delete(c.dirtyBattles, id)
	metrics.SetCacheEntries(model.KindBattle.String(), len(c.battles))
	metrics.SetDirtyEntries(model.KindBattle.String(), len(c.dirtyBattles))
	metrics.SetActiveBattles(len(c.battles))
	return nil
}

// PersistBattleNowUnsafe writes a battle synchronously, bypassing the dirty
// set. Used for terminal records at resolution. The caller must hold
// LevelBattle.
func (c *Caches) PersistBattleNowUnsafe(ctx context.Context, lctx *lockorder.Context, b *model.Battle) error {
	if !lctx.Holds(lockorder.LevelBattle) {
		return lockorder.NewNotHeldError(lockorder.LevelBattle, false, lctx)
	}
	return lockorder.WithWrite(lctx, c.storeBattleMu, func(*lockorder.Context) error {
		return c.store.UpsertBattle(ctx, b)
	})
}

// BattleIDsUnsafe returns the active battle ids in sorted order, for the
// deterministic scheduler sweep. The caller must hold LevelBattle.
func (c *Caches) BattleIDsUnsafe(lctx *lockorder.Context) ([]string, error) {
	if !lctx.Holds(lockorder.LevelBattle) {
		return nil, lockorder.NewNotHeldError(lockorder.LevelBattle, false, lctx)
	}
	ids := make([]string, 0, len(c.battles))
	for id := range c.battles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Caches) markBattleDirty(id string) {
	c.dirtyBattles[id] = struct{}{}
	metrics.SetDirtyEntries(model.KindBattle.String(), len(c.dirtyBattles))
}

// --- messages ---

// MessagesUnsafe returns a user's message list. The caller must hold
// LevelMessageRead (or the write level). A miss under a read-only hold loads
// without inserting; see GetWorldUnsafe.
func (c *Caches) MessagesUnsafe(ctx context.Context, lctx *lockorder.Context, userID int64) ([]model.Message, error) {
	if !lctx.Holds(lockorder.LevelMessageRead) && !lctx.HoldsWrite(lockorder.LevelMessageWrite) {
		return nil, lockorder.NewNotHeldError(lockorder.LevelMessageRead, false, lctx)
	}
	if msgs, ok := c.messages[userID]; ok {
		return msgs, nil
	}

	var loaded []model.Message
	err := lockorder.WithRead(lctx, c.storeMessageMu, func(*lockorder.Context) error {
		var err error
		loaded, err = c.store.LoadMessages(ctx, userID)
		return err
	})
	if err == store.ErrNotFound {
		loaded = []model.Message{}
	} else if err != nil {
		return nil, err
	}

	if lctx.HoldsWrite(lockorder.LevelMessageWrite) {
		c.messages[userID] = loaded
		metrics.SetCacheEntries(model.KindMessage.String(), len(c.messages))
	}
	return loaded, nil
}

// AppendMessageUnsafe appends to a user's message list and marks it dirty.
// The caller must hold LevelMessageWrite.
func (c *Caches) AppendMessageUnsafe(ctx context.Context, lctx *lockorder.Context, userID int64, msg model.Message) error {
	if !lctx.HoldsWrite(lockorder.LevelMessageWrite) {
		return lockorder.NewNotHeldError(lockorder.LevelMessageWrite, true, lctx)
	}
	msgs, err := c.MessagesUnsafe(ctx, lctx, userID)
	if err != nil {
		return err
	}
	c.messages[userID] = append(msgs, msg)
	c.dirtyMessages[userID] = struct{}{}
	metrics.SetCacheEntries(model.KindMessage.String(), len(c.messages))
	metrics.SetDirtyEntries(model.KindMessage.String(), len(c.dirtyMessages))
	return nil
}

// Clear resets every cache map. Call only after a final flush has succeeded;
// anything dirty is lost.
func (c *Caches) Clear() {
	c.battles = make(map[string]*model.Battle)
	c.users = make(map[int64]*model.User)
	c.world = nil
	c.messages = make(map[int64][]model.Message)
	c.dirtyBattles = make(map[string]struct{})
	c.dirtyUsers = make(map[int64]struct{})
	c.dirtyWorld = false
	c.dirtyMessages = make(map[int64]struct{})

	for _, kind := range model.Kinds() {
		metrics.SetCacheEntries(kind.String(), 0)
		metrics.SetDirtyEntries(kind.String(), 0)
	}
	metrics.SetActiveBattles(0)
}
