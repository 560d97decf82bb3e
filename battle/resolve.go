package battle

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/driftmark/driftmark/cache"
	"github.com/driftmark/driftmark/lockorder"
	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/util/metrics"
	"github.com/driftmark/driftmark/util/uniqueid"
)

// Resolve finishes an over battle: winner determination, end snapshot, loot
// transfer, loser teleport, flag clearing, terminal persistence, removal
// from the active map. The whole transition is one continuous hold of the
// Battle and User levels, so no other battle or API path can observe either
// user half-resolved.
//
// Resolving an already ended battle returns EndedError and changes nothing.
func (e *Engine) Resolve(ctx context.Context, lctx *lockorder.Context, battleID string, now time.Time) (*model.Battle, error) {
	var result *model.Battle
	err := lockorder.With(lctx, e.caches.BattleLock(), func(lctx *lockorder.Context) error {
		return lockorder.With(lctx, e.caches.UserLock(), func(lctx *lockorder.Context) error {
			b, err := e.caches.GetBattleUnsafe(ctx, lctx, battleID)
			if err != nil {
				return err
			}
			if b.Ended() {
				return &EndedError{BattleID: battleID}
			}

			attacker, err := e.caches.GetUserUnsafe(ctx, lctx, b.AttackerID)
			if err != nil {
				return err
			}
			attackee, err := e.caches.GetUserUnsafe(ctx, lctx, b.AttackeeID)
			if err != nil {
				return err
			}

			attackerDown := attacker.Ship.Defense.Hull.Cur <= 0
			attackeeDown := attackee.Ship.Defense.Hull.Cur <= 0
			if !attackerDown && !attackeeDown {
				return fmt.Errorf("battle %s is not over", battleID)
			}

			// Mutual destruction goes to the attacker; it cannot happen with
			// one salvo per advance but the rule keeps resolution total.
			winner, loser := attacker, attackee
			if attackerDown && !attackeeDown {
				winner, loser = attackee, attacker
			}

			endStats := model.BattleStats{
				Attacker: snapshotSide(attacker),
				Attackee: snapshotSide(attackee),
			}
			if err := b.Finish(now, winner.ID, endStats); err != nil {
				return err
			}

			loot := loser.Ship.Resource
			if capacity := winner.RemainingCapacity(); loot > capacity {
				loot = capacity
			}

			var worldBounds model.World
			if err := lockorder.WithWrite(lctx, e.caches.WorldLock(), func(lctx *lockorder.Context) error {
				return e.caches.MutateWorldUnsafe(ctx, lctx, func(w *model.World) error {
					w.BattlesResolved++
					worldBounds = *w
					return nil
				})
			}); err != nil {
				return err
			}

			newX, newY := e.teleportPosition(&worldBounds, winner.Ship.X, winner.Ship.Y)

			winnerID, loserID := winner.ID, loser.ID
			if err := e.caches.MutateUserUnsafe(ctx, lctx, winnerID, func(u *model.User) error {
				u.InBattle = false
				u.CurrentBattleID = ""
				u.Ship.Resource += loot
				return nil
			}); err != nil {
				return err
			}
			if err := e.caches.MutateUserUnsafe(ctx, lctx, loserID, func(u *model.User) error {
				u.InBattle = false
				u.CurrentBattleID = ""
				u.Ship.Resource -= loot
				u.Ship.X = newX
				u.Ship.Y = newY
				return nil
			}); err != nil {
				return err
			}

			if err := e.caches.MutateBattleUnsafe(ctx, lctx, battleID, func(b *model.Battle) error {
				b.Loot = loot
				b.AppendEvent(model.Event{
					Time: now,
					Type: model.EventEnded,
					Text: fmt.Sprintf("%s destroyed %s and plundered %d resources", winner.Name, loser.Name, loot),
				})
				return nil
			}); err != nil {
				return err
			}

			// Persist the terminal record before dropping it from the active
			// map; a failed write leaves the battle dirty for the flush loop
			// and the scheduler's cleanup pass.
			if err := e.caches.PersistBattleNowUnsafe(ctx, lctx, b); err != nil {
				e.logger.Errorf("Failed to persist terminal record for battle %s: %v", battleID, err)
			} else if err := e.caches.RemoveBattleUnsafe(lctx, battleID); err != nil {
				return err
			}

			if err := e.notify(ctx, lctx, winnerID, now, fmt.Sprintf("You won the battle against %s, plundering %d resources.", loser.Name, loot)); err != nil {
				return err
			}
			if err := e.notify(ctx, lctx, loserID, now, fmt.Sprintf("Your ship was destroyed by %s. You lost %d resources.", winner.Name, loot)); err != nil {
				return err
			}

			metrics.RecordBattleResolved()
			e.logger.Infof("Battle %s resolved: winner=%d, loot=%d", battleID, winnerID, loot)
			result = b.Clone()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// teleportPosition draws uniform in-bounds positions until one is at least
// the minimum distance from the winner, bounded at teleportAttempts draws.
// When no draw satisfies the constraint the loser is placed deterministically
// in the opposite quadrant, mirrored through the world center.
func (e *Engine) teleportPosition(w *model.World, winnerX, winnerY float64) (float64, float64) {
	for i := 0; i < teleportAttempts; i++ {
		x := e.randFloat() * w.Width
		y := e.randFloat() * w.Height
		if math.Hypot(x-winnerX, y-winnerY) >= e.cfg.MinTeleportDistance {
			return x, y
		}
	}
	return w.Width - winnerX, w.Height - winnerY
}

// notify appends an inbox message, acquiring the message write level above
// the already-held User level.
func (e *Engine) notify(ctx context.Context, lctx *lockorder.Context, userID int64, now time.Time, text string) error {
	return lockorder.WithWrite(lctx, e.caches.MessageLock(), func(lctx *lockorder.Context) error {
		return e.caches.AppendMessageUnsafe(ctx, lctx, userID, model.Message{
			ID:   uniqueid.UniqueId(),
			Time: now,
			Text: text,
		})
	})
}

// Caches exposes the cache registry, for the scheduler.
func (e *Engine) Caches() *cache.Caches {
	return e.caches
}
