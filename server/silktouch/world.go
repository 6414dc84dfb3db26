package silktouch

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/entity"
)

// worldHandler damages spawners as they spawn creatures and turns the drops of those creatures into repair
// loot.
type worldHandler struct {
	world.NopHandler
	p *Plugin
}

// HandleSpawnerSpawn cancels spawns of spawners that are depleted or not whitelisted. Other spawners lose
// health for every creature spawned, which is marked as produced by the spawner.
func (h worldHandler) HandleSpawnerSpawn(ctx *world.Context, pos cube.Pos, s block.MobSpawner, conf *entity.CreatureConfig) {
	tx := ctx.Val()
	set := h.p.settings.Load()
	if !set.conf.SpawnAllowed(s.Type) {
		ctx.Cancel()
		return
	}
	if s.Health.Depleted() {
		ctx.Cancel()
		h.p.track(tx, pos, s, false)
		return
	}
	s.Health = s.Health.Damage(set.conf.Health.SpawnDamage)
	tx.SetBlock(pos, s, nil)
	h.p.track(tx, pos, s, false)
	conf.LootSource = s.Type
}

// HandleCreatureDeath tags the drops of creatures produced by spawners and rolls the special repair item for
// creatures killed by players.
func (h worldHandler) HandleCreatureDeath(_ *world.Tx, c *entity.Creature, killer world.Entity, drops *[]item.Stack) {
	set := h.p.settings.Load()
	pl, byPlayer := killer.(*player.Player)
	if byPlayer && !set.conf.Health.OnlySpawnerLootCanRepair && c.LootSource() == "" {
		c.SetLootSource(c.Kind().Name)
	}
	if c.LootSource() != "" {
		set.tagDrops(c, *drops)
	}
	if byPlayer && h.rollSpecial(set) && h.p.allowed(pl, "silktouchplus.special") {
		*drops = append(*drops, set.specialItem())
		pl.Message(set.lang.Prefixed("repair.special.drop", set.healthFields(c.Kind().Name, 0)))
	}
}

// rollSpecial rolls the drop chance of the special repair item, which is a percentage.
func (h worldHandler) rollSpecial(set *settings) bool {
	chance := set.conf.Health.SpecialRepairItem.DropChance
	return chance > 0 && h.p.random()*100 <= chance
}

// HandleClose forgets the displays of a world that is closing.
func (h worldHandler) HandleClose(tx *world.Tx) {
	h.p.renders.RemoveWorld(tx.World())
	if h.p.holograms != nil {
		h.p.holograms.Clear(tx)
	}
}

var (
	_ block.SpawnerHandler = worldHandler{}
	_ entity.DeathHandler  = worldHandler{}
)
