// Package enchantment implements enchantments that Dragonfly does not provide.
package enchantment

import (
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
)

// glintID is the ID Glint is registered with. It is outside the range of vanilla enchantments, so clients
// render the glint of an enchanted item without listing a known enchantment.
const glintID = 255

// Glint is an enchantment without effect that makes any item look enchanted. It is applied to spawner items
// and special repair items that are configured to glow.
var Glint glint

type glint struct{}

// Name ...
func (glint) Name() string {
	return "Glint"
}

// MaxLevel ...
func (glint) MaxLevel() int {
	return 1
}

// Cost ...
func (glint) Cost(int) (int, int) {
	return 0, 0
}

// Rarity ...
func (glint) Rarity() item.EnchantmentRarity {
	return item.EnchantmentRarityVeryRare
}

// CompatibleWithEnchantment ...
func (glint) CompatibleWithEnchantment(item.EnchantmentType) bool {
	return true
}

// CompatibleWithItem ...
func (glint) CompatibleWithItem(world.Item) bool {
	return true
}

// WithGlint returns s with the Glint enchantment added.
func WithGlint(s item.Stack) item.Stack {
	return s.WithEnchantments(item.NewEnchantment(Glint, 1))
}

// Glowing checks if s carries the Glint enchantment.
func Glowing(s item.Stack) bool {
	_, ok := s.Enchantment(Glint)
	return ok
}

func init() {
	item.RegisterEnchantment(glintID, Glint)
}
