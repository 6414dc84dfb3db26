package block

import "github.com/df-mc/dragonfly/server/world"

func init() {
	world.RegisterBlock(MobSpawner{})
	world.RegisterItem(MobSpawner{})
}
