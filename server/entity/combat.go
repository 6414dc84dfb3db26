package entity

import (
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/item/enchantment"
	"github.com/df-mc/dragonfly/server/world"
)

// holder is an entity that holds items, such as a player.
type holder interface {
	world.Entity
	HeldItems() (mainHand, offHand item.Stack)
}

// AttackDamage returns the damage dealt by a hit with the item held by attacker. A critical hit deals 50%
// more damage.
func AttackDamage(attacker world.Entity, critical bool) float64 {
	dmg := 1.0
	if h, ok := attacker.(holder); ok {
		held, _ := h.HeldItems()
		if w, ok := held.Item().(item.Weapon); ok {
			dmg = w.AttackDamage()
		}
		if e, ok := held.Enchantment(enchantment.Sharpness); ok {
			dmg += enchantment.Sharpness.Addend(e.Level())
		}
	}
	if critical {
		dmg *= 1.5
	}
	return dmg
}

// HandleAttack hurts e if it is a Creature, as if it was hit by attacker. It reports if e was a Creature, in
// which case the attack should not be processed any further.
func HandleAttack(attacker, e world.Entity, critical bool) bool {
	c, ok := e.(*Creature)
	if !ok {
		return false
	}
	c.Attack(attacker, AttackDamage(attacker, critical))
	return true
}
