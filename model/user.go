package model

import "math"

// Base defense values before tech bonuses.
const (
	BaseShield = 100.0
	BaseArmor  = 150.0
	BaseHull   = 200.0

	// Each tech level adds 10% to the matching defense maximum.
	defenseTechBonus = 0.10

	// Each reload tech level shortens weapon reload by 5% multiplicatively.
	reloadTechFactor = 0.95
)

// Tech holds a user's research counts. Defense maxima and weapon reload
// periods are derived from these, never stored as independent truth.
type Tech struct {
	Shield int `json:"shield"`
	Armor  int `json:"armor"`
	Hull   int `json:"hull"`
	Reload int `json:"reload"`
}

// Weapon is one weapon slot on a ship. Count is the number of identical
// mounts; a salvo deals DamagePerShot * Count.
type Weapon struct {
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	DamagePerShot float64 `json:"damage_per_shot"`
	ReloadSeconds float64 `json:"reload_seconds"`
}

// Ship is the mobile state of a user. A user without a ship cannot fight.
type Ship struct {
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	Speed         float64  `json:"speed"`
	Defense       Defense  `json:"defense"`
	CargoCapacity int64    `json:"cargo_capacity"`
	Resource      int64    `json:"resource"`
	Weapons       []Weapon `json:"weapons"`
}

// User is the authoritative account record. Ship defense fields are the live
// source of truth during combat; battle snapshots are historical record only.
type User struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	InBattle        bool   `json:"in_battle"`
	CurrentBattleID string `json:"current_battle_id"`
	Ship            *Ship  `json:"ship"`
	Tech            Tech   `json:"tech"`
}

// MaxDefense computes the defense maxima implied by the user's tech counts.
func (u *User) MaxDefense() Defense {
	scale := func(base float64, level int) float64 {
		return base * (1 + defenseTechBonus*float64(level))
	}
	return Defense{
		Shield: LayerValue{Max: scale(BaseShield, u.Tech.Shield)},
		Armor:  LayerValue{Max: scale(BaseArmor, u.Tech.Armor)},
		Hull:   LayerValue{Max: scale(BaseHull, u.Tech.Hull)},
	}
}

// RecomputeDefenses restores the ship's defense maxima from tech counts and,
// when every current layer reads zero, refills current values to the maxima.
// A record with all layers at zero outside a battle is corrupt (a past bug
// zeroed defense fields wholesale) and must be repaired before combat.
func (u *User) RecomputeDefenses() {
	if u.Ship == nil {
		return
	}
	max := u.MaxDefense()
	refill := u.Ship.Defense.Depleted() && !u.InBattle
	apply := func(lv *LayerValue, m LayerValue) {
		lv.Max = m.Max
		if refill {
			lv.Cur = m.Max
		}
	}
	apply(&u.Ship.Defense.Shield, max.Shield)
	apply(&u.Ship.Defense.Armor, max.Armor)
	apply(&u.Ship.Defense.Hull, max.Hull)
}

// EffectiveReload returns the weapon's reload period after the user's reload
// tech, in seconds.
func (u *User) EffectiveReload(w Weapon) float64 {
	return w.ReloadSeconds * math.Pow(reloadTechFactor, float64(u.Tech.Reload))
}

// HasArmedWeapon reports whether any weapon slot has a positive count.
func (u *User) HasArmedWeapon() bool {
	if u.Ship == nil {
		return false
	}
	for _, w := range u.Ship.Weapons {
		if w.Count > 0 {
			return true
		}
	}
	return false
}

// RemainingCapacity returns the free cargo space on the user's ship.
func (u *User) RemainingCapacity() int64 {
	if u.Ship == nil {
		return 0
	}
	free := u.Ship.CargoCapacity - u.Ship.Resource
	if free < 0 {
		return 0
	}
	return free
}

// DistanceTo returns the euclidean distance between two users' ships.
func (u *User) DistanceTo(other *User) float64 {
	dx := u.Ship.X - other.Ship.X
	dy := u.Ship.Y - other.Ship.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Clone returns a deep copy, safe to hand out after the user lock is released.
func (u *User) Clone() *User {
	c := *u
	if u.Ship != nil {
		ship := *u.Ship
		ship.Weapons = append([]Weapon(nil), u.Ship.Weapons...)
		c.Ship = &ship
	}
	return &c
}
