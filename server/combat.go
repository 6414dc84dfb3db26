package server

import (
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/entity"
)

// combatHandler is the base handler of players accepted by the Server. It lets players damage the creatures
// of the entity package, which Dragonfly does not know how to attack.
type combatHandler struct {
	player.NopHandler
}

// HandleAttackEntity ...
func (combatHandler) HandleAttackEntity(ctx *player.Context, e world.Entity, _, _ *float64, critical *bool) {
	if entity.HandleAttack(ctx.Val(), e, *critical) {
		ctx.Cancel()
	}
}
