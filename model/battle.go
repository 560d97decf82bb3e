package model

import (
	"fmt"
	"time"
)

// Side names one side of a battle.
type Side string

const (
	SideAttacker Side = "attacker"
	SideAttackee Side = "attackee"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideAttacker {
		return SideAttackee
	}
	return SideAttacker
}

// EventType classifies battle log events.
type EventType string

const (
	EventStarted     EventType = "started"
	EventShot        EventType = "shot"
	EventLayerBroken EventType = "layer_broken"
	EventEnded       EventType = "ended"
)

// Event is one entry in the append-only battle log.
type Event struct {
	Time   time.Time        `json:"time"`
	Type   EventType        `json:"type"`
	Side   Side             `json:"side,omitempty"`
	Weapon string           `json:"weapon,omitempty"`
	Layer  Layer            `json:"layer,omitempty"`
	Damage *DamageBreakdown `json:"damage,omitempty"`
	Text   string           `json:"text,omitempty"`
}

// WeaponSnapshot is one weapon in a battle snapshot. ReloadSeconds is the
// effective period after the owner's reload tech, fixed at battle start.
type WeaponSnapshot struct {
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	DamagePerShot float64 `json:"damage_per_shot"`
	ReloadSeconds float64 `json:"reload_seconds"`
}

// SideStats is the snapshot of one side at a battle boundary.
type SideStats struct {
	UserID  int64            `json:"user_id"`
	Defense Defense          `json:"defense"`
	Weapons []WeaponSnapshot `json:"weapons"`
}

// BattleStats is a two-sided snapshot.
type BattleStats struct {
	Attacker SideStats `json:"attacker"`
	Attackee SideStats `json:"attackee"`
}

// Side returns the stats of one side.
func (s *BattleStats) Side(side Side) *SideStats {
	if side == SideAttacker {
		return &s.Attacker
	}
	return &s.Attackee
}

// Battle is the authoritative record of one engagement.
//
// StartStats and EndStats are write-once snapshots and never the live source
// of truth for in-progress combat; the live truth is the referenced users'
// current defense fields. Cooldowns use the canonical "last fired time"
// encoding: a weapon is ready at t once t >= lastFired + reload.
type Battle struct {
	ID         string `json:"id"`
	AttackerID int64  `json:"attacker_id"`
	AttackeeID int64  `json:"attackee_id"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	StartStats BattleStats  `json:"start_stats"`
	EndStats   *BattleStats `json:"end_stats,omitempty"`

	// Cooldowns maps side to last-fired times indexed like the side's
	// snapshot weapon roster. Weapons start ready (lastFired = start - reload).
	Cooldowns map[Side][]time.Time `json:"cooldowns"`

	Log []Event `json:"log"`

	DamageDealt map[Side]float64 `json:"damage_dealt"`

	// LayersBroken tracks, per defending side, which layers have already
	// emitted their one layer-broken event.
	LayersBroken map[Side]map[Layer]bool `json:"layers_broken"`

	WinnerID int64 `json:"winner_id,omitempty"`
	Loot     int64 `json:"loot,omitempty"`
}

// UserID returns the user on the given side.
func (b *Battle) UserID(side Side) int64 {
	if side == SideAttacker {
		return b.AttackerID
	}
	return b.AttackeeID
}

// SideOf returns which side a user fights on.
func (b *Battle) SideOf(userID int64) (Side, error) {
	switch userID {
	case b.AttackerID:
		return SideAttacker, nil
	case b.AttackeeID:
		return SideAttackee, nil
	default:
		return "", fmt.Errorf("user %d is not a participant of battle %s", userID, b.ID)
	}
}

// Ended reports whether the battle has been resolved.
func (b *Battle) Ended() bool {
	return !b.EndTime.IsZero()
}

// AppendEvent appends to the battle log.
func (b *Battle) AppendEvent(e Event) {
	b.Log = append(b.Log, e)
}

// MarkLayerBroken records that the defending side's layer reached zero.
// Returns true the first time only; the layer-broken event must be emitted
// at most once per layer per battle.
func (b *Battle) MarkLayerBroken(defender Side, layer Layer) bool {
	if b.LayersBroken == nil {
		b.LayersBroken = make(map[Side]map[Layer]bool)
	}
	if b.LayersBroken[defender] == nil {
		b.LayersBroken[defender] = make(map[Layer]bool)
	}
	if b.LayersBroken[defender][layer] {
		return false
	}
	b.LayersBroken[defender][layer] = true
	return true
}

// Finish sets the terminal fields. It must be called at most once; the
// engine guards this with an ended check under the battle lock.
func (b *Battle) Finish(endTime time.Time, winnerID int64, stats BattleStats) error {
	if b.Ended() {
		return fmt.Errorf("battle %s already ended at %v", b.ID, b.EndTime)
	}
	b.EndTime = endTime
	b.WinnerID = winnerID
	b.EndStats = &stats
	return nil
}

// Clone returns a deep copy, safe to hand out after the battle lock is released.
func (b *Battle) Clone() *Battle {
	c := *b
	c.Log = append([]Event(nil), b.Log...)
	if b.EndStats != nil {
		stats := *b.EndStats
		stats.Attacker.Weapons = append([]WeaponSnapshot(nil), b.EndStats.Attacker.Weapons...)
		stats.Attackee.Weapons = append([]WeaponSnapshot(nil), b.EndStats.Attackee.Weapons...)
		c.EndStats = &stats
	}
	c.StartStats.Attacker.Weapons = append([]WeaponSnapshot(nil), b.StartStats.Attacker.Weapons...)
	c.StartStats.Attackee.Weapons = append([]WeaponSnapshot(nil), b.StartStats.Attackee.Weapons...)
	if b.Cooldowns != nil {
		c.Cooldowns = make(map[Side][]time.Time, len(b.Cooldowns))
		for side, times := range b.Cooldowns {
			c.Cooldowns[side] = append([]time.Time(nil), times...)
		}
	}
	if b.DamageDealt != nil {
		c.DamageDealt = make(map[Side]float64, len(b.DamageDealt))
		for side, dmg := range b.DamageDealt {
			c.DamageDealt[side] = dmg
		}
	}
	if b.LayersBroken != nil {
		c.LayersBroken = make(map[Side]map[Layer]bool, len(b.LayersBroken))
		for side, layers := range b.LayersBroken {
			m := make(map[Layer]bool, len(layers))
			for layer, broken := range layers {
				m[layer] = broken
			}
			c.LayersBroken[side] = m
		}
	}
	return &c
}
