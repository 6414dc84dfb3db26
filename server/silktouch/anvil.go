package silktouch

import (
	"github.com/df-mc/dragonfly/server/item"
	dfenchant "github.com/df-mc/dragonfly/server/item/enchantment"
)

// AnvilResult is the outcome of combining two items with the silk touch rule.
type AnvilResult int

const (
	// AnvilNone means the rule does not apply to the items.
	AnvilNone AnvilResult = iota
	// AnvilBook means two silk touch I books were combined into a silk touch II book.
	AnvilBook
	// AnvilTool means a break tool was given silk touch II.
	AnvilTool
	// AnvilBlocked means the items may not be combined because one of them has silk touch above level 1.
	AnvilBlocked
)

// AnvilRule decides how silk touch items are combined, so that players can obtain the silk touch level
// spawners require.
type AnvilRule struct {
	// AllowBookCombining allows silk touch books to be combined into silk touch II.
	AllowBookCombining bool
	// PreventCustomRepair prevents items with silk touch above level 1 from being combined otherwise.
	PreventCustomRepair bool
	// Tool reports if an item may be used to break spawners.
	Tool func(s item.Stack) bool
}

// AnvilRule returns the rule configured.
func (c Config) AnvilRule() AnvilRule {
	return AnvilRule{
		AllowBookCombining:  c.SilkTouchTwo.AllowBookCombining,
		PreventCustomRepair: c.SilkTouchTwo.PreventCustomRepair,
		Tool: func(s item.Stack) bool {
			return c.BreakTool(itemName(s))
		},
	}
}

// Combine combines first with second. permitted specifies if the player combining the items may combine
// silk touch books. The result is only meaningful for AnvilBook and AnvilTool, and empty otherwise.
func (r AnvilRule) Combine(first, second item.Stack, permitted bool) (item.Stack, AnvilResult) {
	if first.Empty() || second.Empty() {
		return item.Stack{}, AnvilNone
	}
	if r.AllowBookCombining && permitted && enchantedBook(second) {
		switch {
		case enchantedBook(first):
			if silkTouchLevel(first) == 1 && silkTouchLevel(second) == 1 {
				return item.NewStack(item.EnchantedBook{}, 1).WithEnchantments(silkTouchTwo()), AnvilBook
			}
		case r.Tool != nil && r.Tool(first):
			if silkTouchLevel(second) == 2 || (silkTouchLevel(first) == 1 && silkTouchLevel(second) == 1) {
				return first.Grow(1 - first.Count()).WithEnchantments(silkTouchTwo()), AnvilTool
			}
		}
	}
	if r.PreventCustomRepair && (silkTouchLevel(first) > 1 || silkTouchLevel(second) > 1) {
		return item.Stack{}, AnvilBlocked
	}
	return item.Stack{}, AnvilNone
}

func silkTouchTwo() item.Enchantment {
	return item.NewEnchantment(dfenchant.SilkTouch, 2)
}

func enchantedBook(s item.Stack) bool {
	_, ok := s.Item().(item.EnchantedBook)
	return ok
}
