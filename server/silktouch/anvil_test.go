package silktouch

import (
	"testing"

	"github.com/df-mc/dragonfly/server/item"
	dfenchant "github.com/df-mc/dragonfly/server/item/enchantment"
)

func silkTouch(s item.Stack, level int) item.Stack {
	return s.WithEnchantments(item.NewEnchantment(dfenchant.SilkTouch, level))
}

func TestAnvilRuleCombine(t *testing.T) {
	book := func(level int) item.Stack {
		return silkTouch(item.NewStack(item.EnchantedBook{}, 1), level)
	}
	diamond := item.NewStack(item.Pickaxe{Tier: item.ToolTierDiamond}, 1)
	iron := item.NewStack(item.Pickaxe{Tier: item.ToolTierIron}, 1)

	conf := DefaultConfig()
	rule := conf.AnvilRule()
	noPrevention := rule
	noPrevention.PreventCustomRepair = false
	noBooks := rule
	noBooks.AllowBookCombining = false

	cases := []struct {
		name          string
		rule          AnvilRule
		first, second item.Stack
		permitted     bool
		want          AnvilResult
		wantLevel     int
	}{
		{"books", rule, book(1), book(1), true, AnvilBook, 2},
		{"books without permission", rule, book(1), book(1), false, AnvilNone, 0},
		{"books disabled", noBooks, book(1), book(1), true, AnvilNone, 0},
		{"tool and level two book", rule, diamond, book(2), true, AnvilTool, 2},
		{"level one tool and book", rule, silkTouch(diamond, 1), book(1), true, AnvilTool, 2},
		{"plain tool and level one book", rule, diamond, book(1), true, AnvilNone, 0},
		{"tool not in break list", rule, silkTouch(iron, 1), book(1), true, AnvilNone, 0},
		{"level two books", rule, book(2), book(2), true, AnvilBlocked, 0},
		{"level two tool", rule, silkTouch(diamond, 2), item.NewStack(item.Diamond{}, 1), true, AnvilBlocked, 0},
		{"level two tool without prevention", noPrevention, silkTouch(diamond, 2), item.NewStack(item.Diamond{}, 1), true, AnvilNone, 0},
		{"empty input", rule, item.Stack{}, book(1), true, AnvilNone, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			result, res := c.rule.Combine(c.first, c.second, c.permitted)
			if res != c.want {
				t.Fatalf("Combine() result = %v, want %v", res, c.want)
			}
			if got := silkTouchLevel(result); got != c.wantLevel {
				t.Fatalf("Combine() silk touch level = %d, want %d", got, c.wantLevel)
			}
			if c.want == AnvilTool {
				if _, ok := result.Item().(item.Pickaxe); !ok || result.Count() != 1 {
					t.Fatalf("expected a single pickaxe, got %v", result)
				}
			}
		})
	}
}
