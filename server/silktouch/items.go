package silktouch

import (
	"strings"

	"github.com/df-mc/dragonfly/server/item"
	dfenchant "github.com/df-mc/dragonfly/server/item/enchantment"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/entity"
	silkitem "github.com/dm-vev/silkspawner/server/item"
	"github.com/dm-vev/silkspawner/server/item/enchantment"
	"github.com/dm-vev/silkspawner/server/spawner"
)

// Keys of the values stored on items handed out by the plugin.
const (
	// KeyRepairLoot holds the creature type whose spawners a loot item repairs.
	KeyRepairLoot = "repair_loot"
	// KeySpecialItem marks the special repair item.
	KeySpecialItem = "spawner_special_repair_item"
)

// settings is an immutable snapshot of everything derived from the configuration. A new snapshot is created
// on every reload.
type settings struct {
	conf    Config
	lang    *Lang
	format  spawner.Formatter
	special world.Item
}

func newSettings(conf Config, lang *Lang) *settings {
	return &settings{
		conf:    conf,
		lang:    lang,
		format:  spawner.NewFormatter(conf.Health.DecimalSeparator),
		special: itemByName(conf.Health.SpecialRepairItem.Item, silkitem.EyeOfEnder{}),
	}
}

// ceiling returns the highest health a spawner may reach, which is the special repair amount when it exceeds
// the regular maximum.
func (s *settings) ceiling() spawner.Health {
	return spawner.SpecialCeiling(s.conf.Health.SpecialRepairItem.RepairAmount, spawner.Health(s.conf.Health.MaxRepairHealth))
}

// itemByName looks up a registered item by a name such as ENDER_EYE or minecraft:ender_eye, returning def if
// no such item exists.
func itemByName(name string, def world.Item) world.Item {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "minecraft:") {
		name = "minecraft:" + name
	}
	if it, ok := world.ItemByName(name, 0); ok {
		return it
	}
	return def
}

// healthFields returns the message fields describing a spawner of the type passed with health h.
func (s *settings) healthFields(typ string, h spawner.Health) fields {
	return fields{"Type": typ, "Health": s.format.Number(float64(h)), "HealthPercentage": s.format.Format(h)}
}

// spawnerItem returns a spawner item carrying r, named after its type.
func (s *settings) spawnerItem(r spawner.Record) item.Stack {
	f := s.healthFields(r.Type, r.Health)
	stack := block.NewSpawnerItem(r).
		WithCustomName(s.lang.Text("drop.spawner-item.name", f)).
		WithLore(s.lang.Lines("drop.spawner-item.lore", f)...)
	if s.conf.Drop.SpawnerItem.Glowing {
		stack = enchantment.WithGlint(stack)
	}
	return stack
}

// specialItem returns a single special repair item.
func (s *settings) specialItem() item.Stack {
	amount := s.conf.Health.SpecialRepairItem.RepairAmount
	stack := item.NewStack(s.special, 1).
		WithCustomName(s.lang.Text("repair.special.name", nil)).
		WithLore(s.lang.Lines("repair.special.lore", s.healthFields("", spawner.Health(amount)))...).
		WithValue(KeySpecialItem, true)
	if s.conf.Health.SpecialRepairItem.Glowing {
		stack = enchantment.WithGlint(stack)
	}
	return stack
}

// tagLoot marks stack as repair loot for spawners of the type passed.
func (s *settings) tagLoot(stack item.Stack, typ string) item.Stack {
	f := s.healthFields(typ, spawner.Health(s.conf.Health.LootRepairAmount))
	return stack.WithValue(KeyRepairLoot, typ).WithLore(s.lang.Lines("repair.loot-lore", f)...)
}

// tagDrops marks every drop of c as repair loot for spawners of its kind, leaving out the items it had
// equipped.
func (s *settings) tagDrops(c *entity.Creature, drops []item.Stack) {
	equipment := c.Equipment()
	for i, drop := range drops {
		if drop.Empty() || equipped(drop, equipment) {
			continue
		}
		drops[i] = s.tagLoot(drop, c.Kind().Name)
	}
}

func equipped(drop item.Stack, equipment []item.Stack) bool {
	for _, eq := range equipment {
		if !eq.Empty() && drop.Comparable(eq) {
			return true
		}
	}
	return false
}

// LootType returns the spawner type stack repairs, if it is repair loot.
func LootType(stack item.Stack) (string, bool) {
	v, ok := stack.Value(KeyRepairLoot)
	if !ok {
		return "", false
	}
	typ, ok := v.(string)
	return typ, ok && typ != ""
}

// SpecialItem checks if stack is a special repair item.
func SpecialItem(stack item.Stack) bool {
	v, ok := stack.Value(KeySpecialItem)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// silkTouchLevel returns the level of silk touch on stack, or 0 if it has none.
func silkTouchLevel(stack item.Stack) int {
	if stack.Empty() {
		return 0
	}
	if e, ok := stack.Enchantment(dfenchant.SilkTouch); ok {
		return e.Level()
	}
	return 0
}

// itemName returns the name an item is encoded with, such as minecraft:diamond_pickaxe.
func itemName(stack item.Stack) string {
	if stack.Empty() {
		return ""
	}
	name, _ := stack.Item().EncodeItem()
	return name
}
