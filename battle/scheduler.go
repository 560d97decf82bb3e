package battle

import (
	"context"
	"time"

	"github.com/driftmark/driftmark/cache"
	"github.com/driftmark/driftmark/lockorder"
	"github.com/driftmark/driftmark/util/logger"
	"github.com/driftmark/driftmark/util/metrics"
)

// Scheduler drives every active battle forward on a fixed tick. Each tick
// fires all weapons whose cooldowns have elapsed and resolves battles whose
// loser has no hull left. Battles are visited in sorted id order so that two
// ticks over the same state fire the same shots.
type Scheduler struct {
	engine *Engine
	logger *logger.Logger
}

func NewScheduler(engine *Engine, l *logger.Logger) *Scheduler {
	return &Scheduler{engine: engine, logger: l}
}

// Tick advances all active battles once. Per-battle errors are logged and do
// not stop the sweep; the first error is returned after all battles have been
// visited.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	start := time.Now()
	defer func() { metrics.RecordBattleTick(time.Since(start).Seconds()) }()

	var ids []string
	if err := lockorder.With(lockorder.Background(), s.engine.Caches().BattleLock(), func(lctx *lockorder.Context) error {
		var err error
		ids, err = s.engine.Caches().BattleIDsUnsafe(lctx)
		return err
	}); err != nil {
		return err
	}

	var firstErr error
	for _, id := range ids {
		if err := s.tickBattle(ctx, id, now); err != nil {
			if cache.IsNotFound(err) {
				// Removed between listing and ticking.
				continue
			}
			s.logger.Errorf("Battle %s tick failed: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Scheduler) tickBattle(ctx context.Context, id string, now time.Time) error {
	ended, err := s.isEnded(ctx, id)
	if err != nil {
		return err
	}
	if ended {
		// Ended but still in the active map: the terminal persist failed at
		// resolution time. Retry it here.
		return s.cleanup(ctx, id)
	}
	over, err := s.engine.IsOver(ctx, lockorder.Background(), id)
	if err != nil {
		return err
	}
	if !over {
		if _, _, err := s.engine.Advance(ctx, lockorder.Background(), id, now); err != nil {
			return err
		}
		over, err = s.engine.IsOver(ctx, lockorder.Background(), id)
		if err != nil {
			return err
		}
	}
	if over {
		if _, err := s.engine.Resolve(ctx, lockorder.Background(), id, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) isEnded(ctx context.Context, id string) (bool, error) {
	var ended bool
	err := lockorder.With(lockorder.Background(), s.engine.Caches().BattleLock(), func(lctx *lockorder.Context) error {
		b, err := s.engine.Caches().GetBattleUnsafe(ctx, lctx, id)
		if err != nil {
			return err
		}
		ended = b.Ended()
		return nil
	})
	if err != nil {
		return false, err
	}
	return ended, nil
}

// cleanup re-persists an already resolved battle and drops it from the
// active map once the write succeeds.
func (s *Scheduler) cleanup(ctx context.Context, id string) error {
	caches := s.engine.Caches()
	return lockorder.With(lockorder.Background(), caches.BattleLock(), func(lctx *lockorder.Context) error {
		b, err := caches.GetBattleUnsafe(ctx, lctx, id)
		if err != nil {
			return err
		}
		if err := caches.PersistBattleNowUnsafe(ctx, lctx, b); err != nil {
			return err
		}
		return caches.RemoveBattleUnsafe(lctx, id)
	})
}
