// Package core wires the durable store, the caches, the battle engine, and
// the periodic jobs into one service handle. All entry points take care of
// level acquisition themselves and hand out deep copies, so callers never
// touch live cache records.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/driftmark/driftmark/battle"
	"github.com/driftmark/driftmark/cache"
	"github.com/driftmark/driftmark/config"
	"github.com/driftmark/driftmark/lockorder"
	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/store"
	"github.com/driftmark/driftmark/util/logger"
	"github.com/driftmark/driftmark/util/uniqueid"
)

// Core is the game service handle.
type Core struct {
	cfg       *config.Config
	store     *store.Store
	caches    *cache.Caches
	engine    *battle.Engine
	scheduler *battle.Scheduler
	cron      *cron.Cron
	logger    *logger.Logger
}

// New assembles a core over the given backend. Call Initialize before use.
func New(cfg *config.Config, backend store.Backend) *Core {
	s := store.New(backend)
	caches := cache.New(s)
	engine := battle.NewEngine(caches, battle.Config{
		EngagementRange:     cfg.Battle.EngagementRange,
		MinTeleportDistance: cfg.Battle.MinTeleportDistance,
	})

	l := logger.NewLogger("core")
	return &Core{
		cfg:       cfg,
		store:     s,
		caches:    caches,
		engine:    engine,
		scheduler: battle.NewScheduler(engine, l),
		logger:    l,
	}
}

// Caches exposes the cache registry, for tests and tooling.
func (c *Core) Caches() *cache.Caches {
	return c.caches
}

// Initialize prepares the schema, loads or creates the world record, and
// starts the periodic jobs.
func (c *Core) Initialize(ctx context.Context) error {
	level := logger.ParseLevel(c.cfg.Log.Level)
	c.logger.SetLevel(level)
	c.caches.Logger().SetLevel(level)

	if err := c.store.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize store schema: %w", err)
	}

	if err := c.ensureWorld(ctx); err != nil {
		return err
	}

	c.cron = cron.New()
	if c.cfg.Persistence.Auto {
		spec := fmt.Sprintf("@every %s", c.cfg.Persistence.Interval())
		if _, err := c.cron.AddFunc(spec, func() {
			if err := c.caches.FlushAll(context.Background()); err != nil {
				c.logger.Errorf("Periodic flush failed: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule flush job: %w", err)
		}
	}
	tickSpec := fmt.Sprintf("@every %s", c.cfg.Battle.TickInterval())
	if _, err := c.cron.AddFunc(tickSpec, func() {
		if err := c.scheduler.Tick(context.Background(), time.Now()); err != nil {
			c.logger.Errorf("Battle tick failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule battle tick: %w", err)
	}
	c.cron.Start()

	c.logger.Infof("Core initialized: flush every %s (auto=%v), battle tick every %s",
		c.cfg.Persistence.Interval(), c.cfg.Persistence.Auto, c.cfg.Battle.TickInterval())
	return nil
}

// ensureWorld loads the world singleton, creating it from the configured
// dimensions on first boot.
func (c *Core) ensureWorld(ctx context.Context) error {
	return lockorder.WithWrite(lockorder.Background(), c.caches.WorldLock(), func(lctx *lockorder.Context) error {
		_, err := c.caches.GetWorldUnsafe(ctx, lctx)
		if err == nil {
			return nil
		}
		if !cache.IsNotFound(err) {
			return err
		}
		w := &model.World{
			Width:  c.cfg.World.Width,
			Height: c.cfg.World.Height,
		}
		c.logger.Infof("Creating world %gx%g", w.Width, w.Height)
		return c.caches.PutWorldUnsafe(lctx, w)
	})
}

// Shutdown stops the periodic jobs, flushes everything dirty, and closes the
// store. The caches are cleared only after the final flush succeeded.
func (c *Core) Shutdown(ctx context.Context) error {
	if c.cron != nil {
		stopCtx := c.cron.Stop()
		<-stopCtx.Done()
	}

	flushErr := c.caches.FlushAll(ctx)
	if flushErr != nil {
		c.logger.Errorf("Final flush failed, dirty state not cleared: %v", flushErr)
	} else {
		c.caches.Clear()
	}

	if err := c.store.Close(); err != nil {
		c.logger.Errorf("Failed to close store: %v", err)
		if flushErr == nil {
			flushErr = err
		}
	}
	return flushErr
}

// Flush writes all dirty entities now.
func (c *Core) Flush(ctx context.Context) error {
	return c.caches.FlushAll(ctx)
}

// CreateUser registers a new user record. The id must be unused.
func (c *Core) CreateUser(ctx context.Context, u *model.User) error {
	return lockorder.With(lockorder.Background(), c.caches.UserLock(), func(lctx *lockorder.Context) error {
		_, err := c.caches.GetUserUnsafe(ctx, lctx, u.ID)
		if err == nil {
			return fmt.Errorf("user %d already exists", u.ID)
		}
		if !cache.IsNotFound(err) {
			return err
		}
		u.RecomputeDefenses()
		return c.caches.PutUserUnsafe(lctx, u.Clone())
	})
}

// GetUser returns a copy of the user record.
func (c *Core) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := lockorder.With(lockorder.Background(), c.caches.UserLock(), func(lctx *lockorder.Context) error {
		u, err := c.caches.GetUserUnsafe(ctx, lctx, id)
		if err != nil {
			return err
		}
		out = u.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser applies fn to the live user record under the user level. Ships
// cannot change course or speed mid-battle.
func (c *Core) UpdateUser(ctx context.Context, id int64, fn func(*model.User) error) (*model.User, error) {
	var out *model.User
	err := lockorder.With(lockorder.Background(), c.caches.UserLock(), func(lctx *lockorder.Context) error {
		err := c.caches.MutateUserUnsafe(ctx, lctx, id, func(u *model.User) error {
			if err := fn(u); err != nil {
				return err
			}
			if u.InBattle && u.Ship != nil {
				u.Ship.Speed = 0
			}
			return nil
		})
		if err != nil {
			return err
		}
		u, err := c.caches.GetUserUnsafe(ctx, lctx, id)
		if err != nil {
			return err
		}
		out = u.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetWorld returns a copy of the world singleton.
func (c *Core) GetWorld(ctx context.Context) (*model.World, error) {
	var out *model.World
	err := lockorder.WithRead(lockorder.Background(), c.caches.WorldLock(), func(lctx *lockorder.Context) error {
		w, err := c.caches.GetWorldUnsafe(ctx, lctx)
		if err != nil {
			return err
		}
		out = w.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MessagesFor returns a copy of the user's inbox.
func (c *Core) MessagesFor(ctx context.Context, userID int64) ([]model.Message, error) {
	var out []model.Message
	err := lockorder.WithRead(lockorder.Background(), c.caches.MessageLock(), func(lctx *lockorder.Context) error {
		msgs, err := c.caches.MessagesUnsafe(ctx, lctx, userID)
		if err != nil {
			return err
		}
		out = model.CloneMessages(msgs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PostMessage appends a message to the user's inbox.
func (c *Core) PostMessage(ctx context.Context, userID int64, text string) error {
	return lockorder.WithWrite(lockorder.Background(), c.caches.MessageLock(), func(lctx *lockorder.Context) error {
		return c.caches.AppendMessageUnsafe(ctx, lctx, userID, model.Message{
			ID:   uniqueid.UniqueId(),
			Time: time.Now(),
			Text: text,
		})
	})
}

// InitiateBattle starts a battle between two users and returns a copy of the
// new record.
func (c *Core) InitiateBattle(ctx context.Context, attackerID, attackeeID int64) (*model.Battle, error) {
	return c.engine.Initiate(ctx, lockorder.Background(), attackerID, attackeeID, time.Now())
}

// GetBattle returns a copy of a battle, active or terminal. A terminal
// record pulled back into the cache is swept out again on the next tick.
func (c *Core) GetBattle(ctx context.Context, id string) (*model.Battle, error) {
	var out *model.Battle
	err := lockorder.With(lockorder.Background(), c.caches.BattleLock(), func(lctx *lockorder.Context) error {
		b, err := c.caches.GetBattleUnsafe(ctx, lctx, id)
		if err != nil {
			return err
		}
		out = b.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TickBattles advances every active battle once, firing ready weapons and
// resolving finished fights.
func (c *Core) TickBattles(ctx context.Context) error {
	return c.scheduler.Tick(ctx, time.Now())
}
