package item

import "github.com/df-mc/dragonfly/server/world"

// EyeOfEnder is a plain item. It is the default special repair item of spawners.
type EyeOfEnder struct{}

// EncodeItem ...
func (EyeOfEnder) EncodeItem() (name string, meta int16) {
	return "minecraft:ender_eye", 0
}

func init() {
	world.RegisterItem(EyeOfEnder{})
}
