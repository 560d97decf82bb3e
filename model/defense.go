package model

// Layer names one defensive layer of a ship. Damage is always absorbed in
// shield, armor, hull order.
type Layer string

const (
	LayerShield Layer = "shield"
	LayerArmor  Layer = "armor"
	LayerHull   Layer = "hull"
)

// LayerValue is the current and maximum value of one defense layer.
type LayerValue struct {
	Cur float64 `json:"cur"`
	Max float64 `json:"max"`
}

// Defense is the full defensive state of a ship.
type Defense struct {
	Shield LayerValue `json:"shield"`
	Armor  LayerValue `json:"armor"`
	Hull   LayerValue `json:"hull"`
}

// DamageBreakdown records how one salvo was split across the defense layers.
// Shield + Armor + Hull == Total whenever the target had at least Total
// points remaining across all layers; otherwise the remainder was wasted.
type DamageBreakdown struct {
	Total  float64 `json:"total"`
	Shield float64 `json:"shield"`
	Armor  float64 `json:"armor"`
	Hull   float64 `json:"hull"`

	// Broken lists layers that reached exactly zero in this application.
	Broken []Layer `json:"broken,omitempty"`
}

// ApplyDamage applies a salvo to the defense in shield, armor, hull order.
// Each layer absorbs up to its remaining value before spillover continues to
// the next. A layer that reaches zero is reported in Broken exactly when this
// salvo emptied it.
func (d *Defense) ApplyDamage(total float64) DamageBreakdown {
	out := DamageBreakdown{Total: total}
	remaining := total

	absorb := func(lv *LayerValue, taken *float64, layer Layer) {
		if remaining <= 0 || lv.Cur <= 0 {
			return
		}
		amount := remaining
		if amount > lv.Cur {
			amount = lv.Cur
		}
		lv.Cur -= amount
		remaining -= amount
		*taken = amount
		if lv.Cur == 0 {
			out.Broken = append(out.Broken, layer)
		}
	}

	absorb(&d.Shield, &out.Shield, LayerShield)
	absorb(&d.Armor, &out.Armor, LayerArmor)
	absorb(&d.Hull, &out.Hull, LayerHull)

	return out
}

// Depleted reports whether every layer is at zero.
func (d *Defense) Depleted() bool {
	return d.Shield.Cur <= 0 && d.Armor.Cur <= 0 && d.Hull.Cur <= 0
}
