package silktouch

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/block"
	silkitem "github.com/dm-vev/silkspawner/server/item"
	"github.com/go-gl/mathgl/mgl64"
)

// Cooldown scopes of rate limited player actions.
const (
	scopeHologram    = "hologram"
	scopeUnknownLoot = "unknown-loot"
	scopeFullRepair  = "fully-repaired"
	scopeChangeType  = "change-type"
)

// playerHandler handles the breaking, placing and use of spawners by players.
type playerHandler struct {
	player.NopHandler
	p *Plugin
}

// HandleBlockBreak drops a spawner item carrying the type and health of a spawner broken with a permitted
// tool. Displays of the spawner are removed however it was broken and shown again if the break is cancelled.
func (h playerHandler) HandleBlockBreak(ctx *player.Context, pos cube.Pos, drops *[]item.Stack, xp *int) {
	pl := ctx.Val()
	tx := pl.Tx()
	s, ok := tx.Block(pos).(block.MobSpawner)
	if !ok {
		return
	}
	h.p.untrack(tx, pos)
	set := h.p.settings.Load()
	dropped := s.Type != "" && h.silkTouchBreak(pl, set) && h.p.allowed(pl, "silktouchplus.drop."+s.Type)
	if dropped {
		*drops = []item.Stack{set.spawnerItem(s.Record())}
		*xp = 0
	}
	// A later handler may still cancel the break, leaving the spawner in place.
	handle := pl.H()
	tx.World().Exec(func(tx *world.Tx) {
		if s, ok := tx.Block(pos).(block.MobSpawner); ok {
			if s.Record().Valid() {
				h.p.track(tx, pos, s, true)
			}
			return
		}
		if e, ok := handle.Entity(tx); ok && dropped {
			e.(*player.Player).Message(set.lang.Prefixed("drop.dropped", set.healthFields(s.Type, s.Health)))
		}
	})
}

// silkTouchBreak checks if the player breaks blocks with a tool that obtains spawners.
func (h playerHandler) silkTouchBreak(pl *player.Player, set *settings) bool {
	if pl.GameMode().CreativeInventory() {
		return false
	}
	held, _ := pl.HeldItems()
	return set.conf.BreakTool(itemName(held)) && silkTouchLevel(held) == set.conf.Drop.SilkTouchLevel
}

// HandleBlockPlace tracks a spawner placed from a spawner item once it is in the world.
func (h playerHandler) HandleBlockPlace(ctx *player.Context, pos cube.Pos, b world.Block) {
	if _, ok := b.(block.MobSpawner); !ok {
		return
	}
	pl := ctx.Val()
	held, _ := pl.HeldItems()
	r, ok := block.RecordFromItem(held)
	if !ok {
		return
	}
	// The block is only set after the handler returns, unless a later handler cancels the placement.
	handle := pl.H()
	pl.Tx().World().Exec(func(tx *world.Tx) {
		s, ok := tx.Block(pos).(block.MobSpawner)
		if !ok || !s.Record().Valid() {
			return
		}
		h.p.track(tx, pos, s, true)
		if e, ok := handle.Entity(tx); ok {
			set := h.p.settings.Load()
			e.(*player.Player).Message(set.lang.Prefixed("placed", set.healthFields(r.Type, r.Health)))
		}
	})
}

// HandleItemUseOnBlock repairs spawners, toggles their hologram and restricts changing their type with spawn
// eggs.
func (h playerHandler) HandleItemUseOnBlock(ctx *player.Context, pos cube.Pos, _ cube.Face, _ mgl64.Vec3) {
	pl := ctx.Val()
	tx := pl.Tx()
	s, ok := tx.Block(pos).(block.MobSpawner)
	if !ok {
		return
	}
	held, offHand := pl.HeldItems()
	switch {
	case held.Empty() && offHand.Empty() && pl.Sneaking():
		h.toggleHologram(ctx, tx, pos, s)
	case isSpawnEgg(held):
		h.changeType(ctx, tx, pos, held.Item().(silkitem.SpawnEgg))
	default:
		h.repair(ctx, tx, pos, s, held, offHand)
	}
}

func isSpawnEgg(s item.Stack) bool {
	if s.Empty() {
		return false
	}
	_, ok := s.Item().(silkitem.SpawnEgg)
	return ok
}

func (h playerHandler) repair(ctx *player.Context, tx *world.Tx, pos cube.Pos, s block.MobSpawner, held, offHand item.Stack) {
	pl := ctx.Val()
	set := h.p.settings.Load()
	health, res := set.repair(s.Type, s.Health, held)
	switch res {
	case repairNone:
		return
	case repairUnknownLoot:
		ctx.Cancel()
		if h.p.cooldowns.Try(pl.UUID(), scopeUnknownLoot, messageCooldown) {
			lootType, _ := LootType(held)
			pl.Message(set.lang.Prefixed("repair.unknown-loot", set.healthFields(lootType, s.Health)))
		}
	case repairFull:
		ctx.Cancel()
		if h.p.cooldowns.Try(pl.UUID(), scopeFullRepair, messageCooldown) {
			pl.Message(set.lang.Prefixed("repair.fully-repaired", set.healthFields(s.Type, s.Health)))
		}
	case repairDone:
		ctx.Cancel()
		if !pl.GameMode().CreativeInventory() {
			pl.SetHeldItems(held.Grow(-1), offHand)
		}
		s.Health = health
		tx.SetBlock(pos, s, nil)
		h.p.track(tx, pos, s, true)
		pl.Message(set.lang.Prefixed("repair.repaired", set.healthFields(s.Type, health)))
	}
}

func (h playerHandler) toggleHologram(ctx *player.Context, tx *world.Tx, pos cube.Pos, s block.MobSpawner) {
	pl := ctx.Val()
	if !h.p.allowed(pl, "silktouchplus.hologram") {
		return
	}
	ctx.Cancel()
	if !h.p.cooldowns.Try(pl.UUID(), scopeHologram, hologramToggleCooldown) {
		return
	}
	s.Hologram = !s.Hologram
	tx.SetBlock(pos, s, nil)
	h.p.track(tx, pos, s, false)

	set := h.p.settings.Load()
	id := "hologram.disabled"
	if s.Hologram {
		id = "hologram.enabled"
	}
	pl.Message(set.lang.Prefixed(id, set.healthFields(s.Type, s.Health)))
}

// changeType cancels changing the type of a spawner with a spawn egg of a type the player may not set. If
// permitted, the displays of the spawner are refreshed after the egg changed it.
func (h playerHandler) changeType(ctx *player.Context, tx *world.Tx, pos cube.Pos, egg silkitem.SpawnEgg) {
	pl := ctx.Val()
	if !h.p.allowed(pl, "silktouchplus.changetype."+egg.Kind) {
		ctx.Cancel()
		if h.p.cooldowns.Try(pl.UUID(), scopeChangeType, messageCooldown) {
			set := h.p.settings.Load()
			pl.Message(set.lang.Prefixed("change-type.no-permission", fields{"Type": egg.Kind}))
		}
		return
	}
	tx.World().Exec(func(tx *world.Tx) {
		if s, ok := tx.Block(pos).(block.MobSpawner); ok && s.Record().Valid() {
			h.p.track(tx, pos, s, false)
		}
	})
}

// HandleQuit ...
func (h playerHandler) HandleQuit(pl *player.Player) {
	h.p.cooldowns.Forget(pl.UUID())
}
