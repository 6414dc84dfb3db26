package entity

import (
	"math/rand/v2"
	"slices"
	"strings"

	dfblock "github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
)

// Kind describes a creature that can be produced by a spawner.
type Kind struct {
	// Name is the upper case name of the kind, such as ZOMBIE. It is the value stored on spawners.
	Name string
	// Identifier is the Bedrock entity identifier, such as minecraft:zombie.
	Identifier string
	// MaxHealth is the health a creature of the kind spawns with.
	MaxHealth float64
	// Width and Height are the dimensions of the bounding box.
	Width, Height float64
	// Hostile kinds are monsters. Only hostile kinds are attacked back when hurt.
	Hostile bool
	// XP is the range of experience dropped on death when killed by a player.
	XP [2]int
	// Loot is the loot table rolled on death.
	Loot []LootEntry
	// Equipment returns the items a creature of the kind spawns holding.
	Equipment func() []item.Stack
}

// LootEntry is a single roll of a loot table.
type LootEntry struct {
	Item     func() item.Stack
	Min, Max int
	// Chance is the probability in [0, 1] the entry drops at all. Zero means it always drops.
	Chance float64
}

// equipmentDropChance is the chance each equipped item is dropped on death.
const equipmentDropChance = 0.085

// BBox returns the bounding box of a creature of the kind.
func (k Kind) BBox() cube.BBox {
	w := k.Width / 2
	return cube.Box(-w, 0, -w, w, k.Height, w)
}

// EquippedItems returns the equipment of the kind, or nil if it has none.
func (k Kind) EquippedItems() []item.Stack {
	if k.Equipment == nil {
		return nil
	}
	return k.Equipment()
}

// RollLoot rolls the loot table of the kind. Equipped items are added with a small chance.
func (k Kind) RollLoot(r *rand.Rand, equipment []item.Stack) []item.Stack {
	var drops []item.Stack
	for _, e := range k.Loot {
		if e.Chance > 0 && r.Float64() >= e.Chance {
			continue
		}
		n := e.Min
		if e.Max > e.Min {
			n += r.IntN(e.Max - e.Min + 1)
		}
		if n <= 0 {
			continue
		}
		drops = append(drops, e.Item().Grow(n-1))
	}
	for _, s := range equipment {
		if !s.Empty() && r.Float64() < equipmentDropChance {
			drops = append(drops, s)
		}
	}
	return drops
}

// RollXP returns the amount of experience dropped by a creature of the kind.
func (k Kind) RollXP(r *rand.Rand) int {
	if k.XP[1] <= k.XP[0] {
		return k.XP[0]
	}
	return k.XP[0] + r.IntN(k.XP[1]-k.XP[0]+1)
}

func single(it world.Item) func() item.Stack {
	return func() item.Stack { return item.NewStack(it, 1) }
}

// kinds holds every creature kind by name.
var kinds = indexKinds(defaultKinds())

func indexKinds(list []Kind) map[string]Kind {
	m := make(map[string]Kind, len(list))
	for _, k := range list {
		m[k.Name] = k
	}
	return m
}

// KindByName looks up a kind by its name. The lookup ignores case and a minecraft: prefix.
func KindByName(name string) (Kind, bool) {
	name = strings.ToUpper(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "minecraft:"))
	k, ok := kinds[strings.NewReplacer(" ", "_", "-", "_").Replace(name)]
	return k, ok
}

// Kinds returns all kinds sorted by name.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Kind) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// KindNames returns the names of all kinds sorted.
func KindNames() []string {
	names := make([]string, 0, len(kinds))
	for _, k := range Kinds() {
		names = append(names, k.Name)
	}
	return names
}

func defaultKinds() []Kind {
	return []Kind{{
		Name: "ZOMBIE", Identifier: "minecraft:zombie", MaxHealth: 20, Width: 0.6, Height: 1.9, Hostile: true, XP: [2]int{5, 5},
		Loot: []LootEntry{{Item: single(item.RottenFlesh{}), Min: 0, Max: 2}},
	}, {
		Name: "SKELETON", Identifier: "minecraft:skeleton", MaxHealth: 20, Width: 0.6, Height: 1.9, Hostile: true, XP: [2]int{5, 5},
		Loot: []LootEntry{
			{Item: single(item.Bone{}), Min: 0, Max: 2},
			{Item: single(item.Arrow{}), Min: 0, Max: 2},
		},
		Equipment: func() []item.Stack { return []item.Stack{item.NewStack(item.Bow{}, 1)} },
	}, {
		Name: "SPIDER", Identifier: "minecraft:spider", MaxHealth: 16, Width: 1.4, Height: 0.9, Hostile: true, XP: [2]int{5, 5},
		Loot: []LootEntry{{Item: single(item.SpiderEye{}), Min: 1, Max: 1, Chance: 0.33}},
	}, {
		Name: "CAVE_SPIDER", Identifier: "minecraft:cave_spider", MaxHealth: 12, Width: 0.7, Height: 0.5, Hostile: true, XP: [2]int{5, 5},
		Loot: []LootEntry{{Item: single(item.SpiderEye{}), Min: 1, Max: 1, Chance: 0.33}},
	}, {
		Name: "CREEPER", Identifier: "minecraft:creeper", MaxHealth: 20, Width: 0.6, Height: 1.8, Hostile: true, XP: [2]int{5, 5},
		Loot: []LootEntry{{Item: single(item.Gunpowder{}), Min: 0, Max: 2}},
	}, {
		Name: "BLAZE", Identifier: "minecraft:blaze", MaxHealth: 20, Width: 0.6, Height: 1.8, Hostile: true, XP: [2]int{10, 10},
		Loot: []LootEntry{{Item: single(item.BlazeRod{}), Min: 0, Max: 1}},
	}, {
		Name: "MAGMA_CUBE", Identifier: "minecraft:magma_cube", MaxHealth: 16, Width: 2.08, Height: 2.08, Hostile: true, XP: [2]int{4, 4},
		Loot: []LootEntry{{Item: single(item.MagmaCream{}), Min: 0, Max: 1, Chance: 0.25}},
	}, {
		Name: "SLIME", Identifier: "minecraft:slime", MaxHealth: 16, Width: 2.08, Height: 2.08, Hostile: true, XP: [2]int{4, 4},
		Loot: []LootEntry{{Item: single(item.Slimeball{}), Min: 0, Max: 2}},
	}, {
		Name: "ENDERMAN", Identifier: "minecraft:enderman", MaxHealth: 40, Width: 0.6, Height: 2.9, Hostile: true, XP: [2]int{5, 5},
		Loot: []LootEntry{{Item: single(item.EnderPearl{}), Min: 0, Max: 1}},
	}, {
		Name: "SILVERFISH", Identifier: "minecraft:silverfish", MaxHealth: 8, Width: 0.4, Height: 0.3, Hostile: true, XP: [2]int{5, 5},
	}, {
		Name: "PIG", Identifier: "minecraft:pig", MaxHealth: 10, Width: 0.9, Height: 0.9, XP: [2]int{1, 3},
		Loot: []LootEntry{{Item: single(item.Porkchop{}), Min: 1, Max: 3}},
	}, {
		Name: "COW", Identifier: "minecraft:cow", MaxHealth: 10, Width: 0.9, Height: 1.3, XP: [2]int{1, 3},
		Loot: []LootEntry{
			{Item: single(item.Beef{}), Min: 1, Max: 3},
			{Item: single(item.Leather{}), Min: 0, Max: 2},
		},
	}, {
		Name: "CHICKEN", Identifier: "minecraft:chicken", MaxHealth: 4, Width: 0.6, Height: 0.8, XP: [2]int{1, 3},
		Loot: []LootEntry{
			{Item: single(item.Chicken{}), Min: 1, Max: 1},
			{Item: single(item.Feather{}), Min: 0, Max: 2},
		},
	}, {
		Name: "SHEEP", Identifier: "minecraft:sheep", MaxHealth: 8, Width: 0.9, Height: 1.3, XP: [2]int{1, 3},
		Loot: []LootEntry{
			{Item: single(item.Mutton{}), Min: 1, Max: 2},
			{Item: single(dfblock.Wool{}), Min: 1, Max: 1},
		},
	}}
}
