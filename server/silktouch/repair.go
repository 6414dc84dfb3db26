package silktouch

import (
	"github.com/df-mc/dragonfly/server/item"
	"github.com/dm-vev/silkspawner/server/spawner"
)

// repairResult is the outcome of using an item on a spawner.
type repairResult int

const (
	// repairNone means the item does not repair spawners.
	repairNone repairResult = iota
	// repairUnknownLoot means the item is repair loot of another spawner type.
	repairUnknownLoot
	// repairFull means the spawner is already at the repair ceiling of the item.
	repairFull
	// repairDone means the spawner was repaired.
	repairDone
)

// repair computes the health of a spawner of type typ with health h after held is used on it. Repair loot
// adds the loot repair amount up to the maximum repair health. The special repair item adds its own amount
// up to the larger of that amount and the maximum repair health.
func (s *settings) repair(typ string, h spawner.Health, held item.Stack) (spawner.Health, repairResult) {
	conf := s.conf.Health
	var (
		amount  float64
		ceiling spawner.Health
	)
	if lootType, ok := LootType(held); ok {
		if spawner.NormaliseType(lootType) != spawner.NormaliseType(typ) {
			return h, repairUnknownLoot
		}
		amount, ceiling = conf.LootRepairAmount, spawner.Health(conf.MaxRepairHealth)
	} else if SpecialItem(held) {
		amount, ceiling = conf.SpecialRepairItem.RepairAmount, s.ceiling()
	} else {
		return h, repairNone
	}
	repaired, ok := h.Repair(amount, ceiling)
	if !ok {
		return h, repairFull
	}
	return repaired, repairDone
}
