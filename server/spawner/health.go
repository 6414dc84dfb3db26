package spawner

import (
	"math"
	"sync/atomic"
)

// Health is the normalised durability of a spawner. A freshly obtained spawner has DefaultHealth and loses a
// fixed amount every time it produces a creature.
type Health float64

const (
	// DefaultHealth is the health of a spawner that has never spawned anything, and the value assumed when a
	// persisted record does not carry a health value at all.
	DefaultHealth Health = 1.0
	// MaxTier is the highest crack animation tier, shown for spawners that are nearly depleted.
	MaxTier = 9
)

// Tier returns the crack animation tier for the health, ranging from 0 (intact) to MaxTier (depleted).
func (h Health) Tier() int {
	if math.IsNaN(float64(h)) {
		return 0
	}
	tier := MaxTier - int(math.Floor(float64(h)*10))
	return min(max(tier, 0), MaxTier)
}

// Depleted reports if the spawner no longer has any health left to spawn creatures with.
func (h Health) Depleted() bool {
	return h <= 0
}

// Damage returns the health after taking amount of damage. The result never drops below zero.
func (h Health) Damage(amount float64) Health {
	if amount < 0 || math.IsNaN(amount) {
		amount = 0
	}
	return max(h-Health(amount), 0)
}

// Repair returns the health after adding amount, limited to ceiling. If h is already at or above ceiling,
// h is returned unchanged together with false.
func (h Health) Repair(amount float64, ceiling Health) (Health, bool) {
	if h >= ceiling {
		return h, false
	}
	if amount < 0 || math.IsNaN(amount) {
		amount = 0
	}
	return min(h+Health(amount), ceiling), true
}

// Clamp forces h into [0, ceiling]. NaN is treated as a missing value and becomes DefaultHealth, limited to
// ceiling.
func (h Health) Clamp(ceiling Health) Health {
	if math.IsNaN(float64(h)) {
		h = DefaultHealth
	}
	return min(max(h, 0), ceiling)
}

// SpecialCeiling returns the ceiling used when repairing with the special repair item. Unlike ordinary loot,
// the special item may lift health up to its own repair amount when that exceeds the regular maximum.
func SpecialCeiling(specialAmount float64, maxHealth Health) Health {
	return max(Health(specialAmount), maxHealth)
}

// ceiling holds the math.Float64bits of the highest health any spawner may carry.
var ceiling atomic.Uint64

func init() {
	SetCeiling(SpecialCeiling(2, DefaultHealth))
}

// SetCeiling changes the highest health a decoded or placed spawner may carry. Negative values become 0 and
// NaN becomes DefaultHealth.
func SetCeiling(h Health) {
	if math.IsNaN(float64(h)) || math.IsInf(float64(h), 0) {
		h = DefaultHealth
	}
	ceiling.Store(math.Float64bits(float64(max(h, 0))))
}

// Ceiling returns the value last passed to SetCeiling.
func Ceiling() Health {
	return Health(math.Float64frombits(ceiling.Load()))
}

// Sanitise clamps h to [0, Ceiling()], replacing NaN with DefaultHealth.
func (h Health) Sanitise() Health {
	return h.Clamp(Ceiling())
}
