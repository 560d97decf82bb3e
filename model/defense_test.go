package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defense(shield, armor, hull float64) Defense {
	return Defense{
		Shield: LayerValue{Cur: shield, Max: shield},
		Armor:  LayerValue{Cur: armor, Max: armor},
		Hull:   LayerValue{Cur: hull, Max: hull},
	}
}

func TestApplyDamageAbsorbedByShield(t *testing.T) {
	d := defense(100, 50, 200)
	out := d.ApplyDamage(40)

	assert.Equal(t, 40.0, out.Shield)
	assert.Equal(t, 0.0, out.Armor)
	assert.Equal(t, 0.0, out.Hull)
	assert.Equal(t, 60.0, d.Shield.Cur)
	assert.Empty(t, out.Broken)
}

func TestApplyDamageSpillover(t *testing.T) {
	d := defense(30, 20, 200)
	out := d.ApplyDamage(60)

	assert.Equal(t, 30.0, out.Shield)
	assert.Equal(t, 20.0, out.Armor)
	assert.Equal(t, 10.0, out.Hull)
	assert.Equal(t, out.Total, out.Shield+out.Armor+out.Hull)

	assert.Equal(t, 0.0, d.Shield.Cur)
	assert.Equal(t, 0.0, d.Armor.Cur)
	assert.Equal(t, 190.0, d.Hull.Cur)
	assert.Equal(t, []Layer{LayerShield, LayerArmor}, out.Broken)
}

func TestApplyDamageConservation(t *testing.T) {
	// Whenever pre-hit shield+armor+hull >= total, the split sums to total
	// and each layer clamps at zero.
	cases := []struct {
		name                string
		shield, armor, hull float64
		total               float64
	}{
		{"shield only", 100, 100, 100, 50},
		{"exact shield", 100, 100, 100, 100},
		{"into armor", 100, 100, 100, 150},
		{"into hull", 100, 100, 100, 250},
		{"exact pool", 100, 100, 100, 300},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := defense(c.shield, c.armor, c.hull)
			out := d.ApplyDamage(c.total)
			assert.Equal(t, c.total, out.Shield+out.Armor+out.Hull)
			assert.GreaterOrEqual(t, d.Shield.Cur, 0.0)
			assert.GreaterOrEqual(t, d.Armor.Cur, 0.0)
			assert.GreaterOrEqual(t, d.Hull.Cur, 0.0)
		})
	}
}

func TestApplyDamageOverkillWastesRemainder(t *testing.T) {
	d := defense(10, 10, 10)
	out := d.ApplyDamage(100)

	assert.Equal(t, 30.0, out.Shield+out.Armor+out.Hull)
	assert.True(t, d.Depleted())
	assert.Equal(t, []Layer{LayerShield, LayerArmor, LayerHull}, out.Broken)
}

func TestApplyDamageSkipsEmptyLayers(t *testing.T) {
	d := defense(0, 40, 200)
	out := d.ApplyDamage(50)

	assert.Equal(t, 0.0, out.Shield)
	assert.Equal(t, 40.0, out.Armor)
	assert.Equal(t, 10.0, out.Hull)
	// The already empty shield was not broken by this salvo.
	assert.Equal(t, []Layer{LayerArmor}, out.Broken)
}

func TestExactZeroIsBrokenOnce(t *testing.T) {
	d := defense(50, 100, 100)
	out := d.ApplyDamage(50)
	require.Equal(t, []Layer{LayerShield}, out.Broken)

	// The next salvo goes straight to armor with no repeated shield event.
	out = d.ApplyDamage(10)
	assert.Equal(t, 10.0, out.Armor)
	assert.Empty(t, out.Broken)
}
