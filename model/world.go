package model

// WorldID is the id of the world singleton in caches and the durable store.
const WorldID int64 = 1

// World is the singleton world record: map bounds plus running counters
// maintained by the battle engine.
type World struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	BattlesResolved int64 `json:"battles_resolved"`
	ShotsFired      int64 `json:"shots_fired"`
}

// Clone returns a copy, safe to hand out after the world lock is released.
func (w *World) Clone() *World {
	c := *w
	return &c
}
