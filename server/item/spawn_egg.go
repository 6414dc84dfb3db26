package item

import (
	"strings"

	"github.com/df-mc/dragonfly/server/block/cube"
	dfitem "github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/entity"
	"github.com/go-gl/mathgl/mgl64"
)

// SpawnEgg is an item that spawns a creature of its kind where it is used. Used on a MobSpawner, it changes
// the type of the spawner instead.
type SpawnEgg struct {
	// Kind is the name of the creature kind, such as ZOMBIE.
	Kind string
}

// UseOnBlock ...
func (e SpawnEgg) UseOnBlock(pos cube.Pos, face cube.Face, _ mgl64.Vec3, tx *world.Tx, _ dfitem.User, ctx *dfitem.UseContext) bool {
	kind, ok := entity.KindByName(e.Kind)
	if !ok {
		return false
	}
	if s, ok := tx.Block(pos).(block.MobSpawner); ok {
		if s.Type == kind.Name {
			return false
		}
		s.Type = kind.Name
		tx.SetBlock(pos, s, nil)
		ctx.SubtractFromCount(1)
		return true
	}
	spawnPos := pos.Side(face).Vec3Middle()
	tx.AddEntity(entity.NewCreature(world.EntitySpawnOpts{Position: spawnPos}, entity.CreatureConfig{Kind: kind}))
	ctx.SubtractFromCount(1)
	return true
}

// EncodeItem ...
func (e SpawnEgg) EncodeItem() (name string, meta int16) {
	return "minecraft:" + strings.ToLower(e.Kind) + "_spawn_egg", 0
}

// SpawnEggs returns a spawn egg for every creature kind.
func SpawnEggs() []SpawnEgg {
	kinds := entity.Kinds()
	eggs := make([]SpawnEgg, 0, len(kinds))
	for _, k := range kinds {
		eggs = append(eggs, SpawnEgg{Kind: k.Name})
	}
	return eggs
}

func init() {
	for _, egg := range SpawnEggs() {
		world.RegisterItem(egg)
	}
}
