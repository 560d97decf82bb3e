// Package battle implements combat resolution over the cache layer: battle
// initiation, weapon fire, the battle-over check, and resolution with loot
// transfer and loser teleport.
//
// The engine is the most demanding consumer of the lock discipline: every
// operation touches two user records and one battle record under one
// continuous hold of the Battle and User levels, while the scheduler
// advances battles concurrently with API calls. The battle snapshots are
// historical record only; the live source of truth mid-fight is always the
// referenced users' current defense fields.
package battle

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/driftmark/driftmark/cache"
	"github.com/driftmark/driftmark/lockorder"
	"github.com/driftmark/driftmark/model"
	"github.com/driftmark/driftmark/util/logger"
	"github.com/driftmark/driftmark/util/metrics"
	"github.com/driftmark/driftmark/util/uniqueid"
)

// teleportAttempts bounds the random placement draws before the
// deterministic fallback is used.
const teleportAttempts = 100

// Config holds the engine tunables.
type Config struct {
	EngagementRange     float64
	MinTeleportDistance float64
}

// ShotReport describes one fired salvo.
type ShotReport struct {
	Side   model.Side
	Weapon string
	Damage model.DamageBreakdown
}

// Engine performs combat mechanics against the live cache state.
type Engine struct {
	caches *cache.Caches
	cfg    Config
	logger *logger.Logger

	// randFloat draws uniform values in [0, 1). Only ever called under the
	// battle lock, so the unsynchronized source is safe. Replaceable in tests.
	randFloat func() float64
}

// NewEngine creates an engine over the given caches.
func NewEngine(caches *cache.Caches, cfg Config) *Engine {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Engine{
		caches:    caches,
		cfg:       cfg,
		logger:    logger.NewLogger("battle-engine"),
		randFloat: rng.Float64,
	}
}

// SetRandFloat replaces the random source, for deterministic tests.
func (e *Engine) SetRandFloat(fn func() float64) {
	e.randFloat = fn
}

// Initiate validates and starts a battle between attacker and attackee. The
// whole transition (validation, snapshots, cooldowns, user flags, insertion)
// happens under one continuous hold of the Battle and User levels so a
// concurrent initiation against either user cannot race.
func (e *Engine) Initiate(ctx context.Context, lctx *lockorder.Context, attackerID, attackeeID int64, now time.Time) (*model.Battle, error) {
	if attackerID == attackeeID {
		return nil, fmt.Errorf("user %d cannot attack themselves", attackerID)
	}

	var result *model.Battle
	err := lockorder.With(lctx, e.caches.BattleLock(), func(lctx *lockorder.Context) error {
		return lockorder.With(lctx, e.caches.UserLock(), func(lctx *lockorder.Context) error {
			attacker, err := e.caches.GetUserUnsafe(ctx, lctx, attackerID)
			if err != nil {
				return err
			}
			attackee, err := e.caches.GetUserUnsafe(ctx, lctx, attackeeID)
			if err != nil {
				return err
			}

			if attacker.InBattle {
				return &AlreadyInBattleError{UserID: attackerID, BattleID: attacker.CurrentBattleID}
			}
			if attackee.InBattle {
				return &AlreadyInBattleError{UserID: attackeeID, BattleID: attackee.CurrentBattleID}
			}
			if attacker.Ship == nil {
				return &NoShipError{UserID: attackerID}
			}
			if attackee.Ship == nil {
				return &NoShipError{UserID: attackeeID}
			}
			if dist := attacker.DistanceTo(attackee); dist > e.cfg.EngagementRange {
				return &OutOfRangeError{Distance: dist, MaxRange: e.cfg.EngagementRange}
			}
			if !attacker.HasArmedWeapon() {
				return &NoWeaponsError{UserID: attackerID}
			}

			// Repair records whose defense fields were zeroed outside combat;
			// fighting such a record would end the battle instantly.
			attacker.RecomputeDefenses()
			attackee.RecomputeDefenses()

			b := &model.Battle{
				ID:         uniqueid.UniqueId(),
				AttackerID: attackerID,
				AttackeeID: attackeeID,
				StartTime:  now,
				StartStats: model.BattleStats{
					Attacker: snapshotSide(attacker),
					Attackee: snapshotSide(attackee),
				},
				Cooldowns:   make(map[model.Side][]time.Time),
				DamageDealt: map[model.Side]float64{model.SideAttacker: 0, model.SideAttackee: 0},
			}
			b.Cooldowns[model.SideAttacker] = readyCooldowns(b.StartStats.Attacker.Weapons, now)
			b.Cooldowns[model.SideAttackee] = readyCooldowns(b.StartStats.Attackee.Weapons, now)
			b.AppendEvent(model.Event{
				Time: now,
				Type: model.EventStarted,
				Text: fmt.Sprintf("%s engaged %s", attacker.Name, attackee.Name),
			})

			for _, u := range []*model.User{attacker, attackee} {
				id := u.ID
				if err := e.caches.MutateUserUnsafe(ctx, lctx, id, func(u *model.User) error {
					u.InBattle = true
					u.CurrentBattleID = b.ID
					u.Ship.Speed = 0
					return nil
				}); err != nil {
					return err
				}
			}

			if err := e.caches.PutBattleUnsafe(lctx, b); err != nil {
				return err
			}

			if err := e.notify(ctx, lctx, attackeeID, now, fmt.Sprintf("You are under attack by %s!", attacker.Name)); err != nil {
				return err
			}

			e.logger.Infof("Battle %s started: %d vs %d", b.ID, attackerID, attackeeID)
			result = b.Clone()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func snapshotSide(u *model.User) model.SideStats {
	stats := model.SideStats{
		UserID:  u.ID,
		Defense: u.Ship.Defense,
	}
	for _, w := range u.Ship.Weapons {
		stats.Weapons = append(stats.Weapons, model.WeaponSnapshot{
			Name:          w.Name,
			Count:         w.Count,
			DamagePerShot: w.DamagePerShot,
			ReloadSeconds: u.EffectiveReload(w),
		})
	}
	return stats
}

// readyCooldowns initializes every weapon as ready at start: with the
// last-fired encoding, ready-now means lastFired = start - reload.
func readyCooldowns(weapons []model.WeaponSnapshot, start time.Time) []time.Time {
	cds := make([]time.Time, len(weapons))
	for i, w := range weapons {
		cds[i] = start.Add(-reloadDuration(w))
	}
	return cds
}

func reloadDuration(w model.WeaponSnapshot) time.Duration {
	return time.Duration(w.ReloadSeconds * float64(time.Second))
}

// Advance fires at most one ready weapon at instant now. The attacker's
// first ready weapon in roster order shoots; failing that, the attackee's.
// If nothing is ready, the shot report is nil and nextReady is the minimum
// wait until any weapon of either side becomes ready again.
func (e *Engine) Advance(ctx context.Context, lctx *lockorder.Context, battleID string, now time.Time) (*ShotReport, time.Duration, error) {
	var report *ShotReport
	var nextReady time.Duration

	err := lockorder.With(lctx, e.caches.BattleLock(), func(lctx *lockorder.Context) error {
		return lockorder.With(lctx, e.caches.UserLock(), func(lctx *lockorder.Context) error {
			b, err := e.caches.GetBattleUnsafe(ctx, lctx, battleID)
			if err != nil {
				return err
			}
			if b.Ended() {
				return &EndedError{BattleID: battleID}
			}

			over, err := e.isOverLocked(ctx, lctx, b)
			if err != nil {
				return err
			}
			if over {
				// Nothing left to fire at; the caller resolves.
				return nil
			}

			side, idx, ok := selectWeapon(b, now)
			if !ok {
				nextReady = minTimeUntilReady(b, now)
				return nil
			}

			weapon := b.StartStats.Side(side).Weapons[idx]
			defenderID := b.UserID(side.Opponent())
			salvo := weapon.DamagePerShot * float64(weapon.Count)

			var breakdown model.DamageBreakdown
			if err := e.caches.MutateUserUnsafe(ctx, lctx, defenderID, func(u *model.User) error {
				breakdown = u.Ship.Defense.ApplyDamage(salvo)
				return nil
			}); err != nil {
				return err
			}

			if err := e.caches.MutateBattleUnsafe(ctx, lctx, battleID, func(b *model.Battle) error {
				b.Cooldowns[side][idx] = now
				b.DamageDealt[side] += breakdown.Total
				b.AppendEvent(model.Event{
					Time:   now,
					Type:   model.EventShot,
					Side:   side,
					Weapon: weapon.Name,
					Damage: &breakdown,
				})
				for _, layer := range breakdown.Broken {
					if b.MarkLayerBroken(side.Opponent(), layer) {
						b.AppendEvent(model.Event{
							Time:  now,
							Type:  model.EventLayerBroken,
							Side:  side.Opponent(),
							Layer: layer,
						})
					}
				}
				return nil
			}); err != nil {
				return err
			}

			if err := lockorder.WithWrite(lctx, e.caches.WorldLock(), func(lctx *lockorder.Context) error {
				return e.caches.MutateWorldUnsafe(ctx, lctx, func(w *model.World) error {
					w.ShotsFired++
					return nil
				})
			}); err != nil {
				return err
			}

			metrics.RecordShotFired(string(side))
			report = &ShotReport{Side: side, Weapon: weapon.Name, Damage: breakdown}
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}
	return report, nextReady, nil
}

// selectWeapon returns the firing side and roster index: the attacker's
// first ready armed weapon, else the attackee's, else none.
func selectWeapon(b *model.Battle, now time.Time) (model.Side, int, bool) {
	for _, side := range []model.Side{model.SideAttacker, model.SideAttackee} {
		weapons := b.StartStats.Side(side).Weapons
		for i, w := range weapons {
			if w.Count <= 0 {
				continue
			}
			readyAt := b.Cooldowns[side][i].Add(reloadDuration(w))
			if !now.Before(readyAt) {
				return side, i, true
			}
		}
	}
	return "", 0, false
}

// minTimeUntilReady returns the smallest wait until any armed weapon of
// either side is ready again.
func minTimeUntilReady(b *model.Battle, now time.Time) time.Duration {
	var min time.Duration
	found := false
	for _, side := range []model.Side{model.SideAttacker, model.SideAttackee} {
		weapons := b.StartStats.Side(side).Weapons
		for i, w := range weapons {
			if w.Count <= 0 {
				continue
			}
			wait := b.Cooldowns[side][i].Add(reloadDuration(w)).Sub(now)
			if wait < 0 {
				wait = 0
			}
			if !found || wait < min {
				min = wait
				found = true
			}
		}
	}
	return min
}

// IsOver reports whether the battle is over: at least one participant's live
// hull is at or below zero. Live user records only; the snapshots are never
// consulted.
func (e *Engine) IsOver(ctx context.Context, lctx *lockorder.Context, battleID string) (bool, error) {
	var over bool
	err := lockorder.With(lctx, e.caches.BattleLock(), func(lctx *lockorder.Context) error {
		return lockorder.With(lctx, e.caches.UserLock(), func(lctx *lockorder.Context) error {
			b, err := e.caches.GetBattleUnsafe(ctx, lctx, battleID)
			if err != nil {
				return err
			}
			over, err = e.isOverLocked(ctx, lctx, b)
			return err
		})
	})
	if err != nil {
		return false, err
	}
	return over, nil
}

func (e *Engine) isOverLocked(ctx context.Context, lctx *lockorder.Context, b *model.Battle) (bool, error) {
	attacker, err := e.caches.GetUserUnsafe(ctx, lctx, b.AttackerID)
	if err != nil {
		return false, err
	}
	attackee, err := e.caches.GetUserUnsafe(ctx, lctx, b.AttackeeID)
	if err != nil {
		return false, err
	}
	return attacker.Ship.Defense.Hull.Cur <= 0 || attackee.Ship.Defense.Hull.Cur <= 0, nil
}
