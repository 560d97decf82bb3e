package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/driftmark/driftmark/lockorder"
	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/util/metrics"
)

// FlushAll writes every dirty entity to the durable store, one kind at a
// time. Each kind is flushed on a fresh lock context; kinds are visited in
// ascending lock-level order for a deterministic sweep. Write failures are
// logged, counted, and left in the dirty sets for the next tick.
func (c *Caches) FlushAll(ctx context.Context) error {
	flushed := 0
	failed := 0

	for _, kind := range model.Kinds() {
		ok, bad, err := c.FlushKind(ctx, kind)
		flushed += ok
		failed += bad
		if err != nil {
			return err
		}
	}

	c.logger.Infof("Flush summary: written=%d, failed=%d", flushed, failed)
	if failed > 0 {
		return fmt.Errorf("failed to write %d dirty entities", failed)
	}
	return nil
}

// FlushKind writes one kind's dirty entities under a continuous hold of the
// kind's lock plus its store-region write lock. An id leaves the dirty set
// only after its write succeeded. Returns (written, failed) counts; the
// error return is reserved for lock misuse, not store failures.
func (c *Caches) FlushKind(ctx context.Context, kind model.Kind) (int, int, error) {
	start := time.Now()
	var written, failed int
	var err error

	switch kind {
	case model.KindBattle:
		err = lockorder.With(lockorder.Background(), c.battleMu, func(lctx *lockorder.Context) error {
			return lockorder.WithWrite(lctx, c.storeBattleMu, func(*lockorder.Context) error {
				written, failed = c.flushBattlesLocked(ctx)
				return nil
			})
		})
	case model.KindUser:
		err = lockorder.With(lockorder.Background(), c.userMu, func(lctx *lockorder.Context) error {
			return lockorder.WithWrite(lctx, c.storeUserMu, func(*lockorder.Context) error {
				written, failed = c.flushUsersLocked(ctx)
				return nil
			})
		})
	case model.KindWorld:
		err = lockorder.WithWrite(lockorder.Background(), c.worldMu, func(lctx *lockorder.Context) error {
			return lockorder.WithWrite(lctx, c.storeWorldMu, func(*lockorder.Context) error {
				written, failed = c.flushWorldLocked(ctx)
				return nil
			})
		})
	case model.KindMessage:
		err = lockorder.WithWrite(lockorder.Background(), c.messageMu, func(lctx *lockorder.Context) error {
			return lockorder.WithWrite(lctx, c.storeMessageMu, func(*lockorder.Context) error {
				written, failed = c.flushMessagesLocked(ctx)
				return nil
			})
		})
	default:
		return 0, 0, fmt.Errorf("unknown entity kind: %q", kind)
	}
	if err != nil {
		return 0, 0, err
	}

	metrics.RecordFlush(kind.String(), time.Since(start).Seconds())
	return written, failed, nil
}

func (c *Caches) flushBattlesLocked(ctx context.Context) (written, failed int) {
	for id := range c.dirtyBattles {
		b, ok := c.battles[id]
		if !ok {
			// Resolved and persisted as a terminal record already.
			delete(c.dirtyBattles, id)
			continue
		}
		if err := c.store.UpsertBattle(ctx, b); err != nil {
			c.logger.Errorf("Failed to write battle %s: %v", id, err)
			metrics.RecordFlushError(model.KindBattle.String())
			failed++
			continue
		}
		delete(c.dirtyBattles, id)
		written++
	}
	metrics.SetDirtyEntries(model.KindBattle.String(), len(c.dirtyBattles))
	return written, failed
}

func (c *Caches) flushUsersLocked(ctx context.Context) (written, failed int) {
	for id := range c.dirtyUsers {
		u, ok := c.users[id]
		if !ok {
			delete(c.dirtyUsers, id)
			continue
		}
		if err := c.store.UpsertUser(ctx, u); err != nil {
			c.logger.Errorf("Failed to write user %d: %v", id, err)
			metrics.RecordFlushError(model.KindUser.String())
			failed++
			continue
		}
		delete(c.dirtyUsers, id)
		written++
	}
	metrics.SetDirtyEntries(model.KindUser.String(), len(c.dirtyUsers))
	return written, failed
}

func (c *Caches) flushWorldLocked(ctx context.Context) (written, failed int) {
	if !c.dirtyWorld || c.world == nil {
		return 0, 0
	}
	if err := c.store.UpsertWorld(ctx, c.world); err != nil {
		c.logger.Errorf("Failed to write world: %v", err)
		metrics.RecordFlushError(model.KindWorld.String())
		return 0, 1
	}
	c.dirtyWorld = false
	metrics.SetDirtyEntries(model.KindWorld.String(), 0)
	return 1, 0
}

func (c *Caches) flushMessagesLocked(ctx context.Context) (written, failed int) {
	for userID := range c.dirtyMessages {
		msgs, ok := c.messages[userID]
		if !ok {
			delete(c.dirtyMessages, userID)
			continue
		}
		if err := c.store.UpsertMessages(ctx, userID, msgs); err != nil {
			c.logger.Errorf("Failed to write messages for user %d: %v", userID, err)
			metrics.RecordFlushError(model.KindMessage.String())
			failed++
			continue
		}
		delete(c.dirtyMessages, userID)
		written++
	}
	metrics.SetDirtyEntries(model.KindMessage.String(), len(c.dirtyMessages))
	return written, failed
}

// DirtyCount returns the number of ids pending durable write for a kind.
// Takes the kind's lock; do not call while holding it.
func (c *Caches) DirtyCount(kind model.Kind) int {
	count := 0
	switch kind {
	case model.KindBattle:
		_ = lockorder.With(lockorder.Background(), c.battleMu, func(*lockorder.Context) error {
			count = len(c.dirtyBattles)
			return nil
		})
	case model.KindUser:
		_ = lockorder.With(lockorder.Background(), c.userMu, func(*lockorder.Context) error {
			count = len(c.dirtyUsers)
			return nil
		})
	case model.KindWorld:
		_ = lockorder.WithRead(lockorder.Background(), c.worldMu, func(*lockorder.Context) error {
			if c.dirtyWorld {
				count = 1
			}
			return nil
		})
	case model.KindMessage:
		_ = lockorder.WithRead(lockorder.Background(), c.messageMu, func(*lockorder.Context) error {
			count = len(c.dirtyMessages)
			return nil
		})
	}
	return count
}
