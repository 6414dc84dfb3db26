package entity

import (
	dfentity "github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/world"
)

// Registry is a world.EntityRegistry that registers all default entities implemented by Dragonfly together
// with a creature type for every Kind.
var Registry = dfentity.DefaultRegistry.Config().New(append(dfentity.DefaultRegistry.Types(), creatureTypes()...))

// creatureTypes returns the entity types of all kinds.
func creatureTypes() []world.EntityType {
	list := Kinds()
	types := make([]world.EntityType, 0, len(list))
	for _, k := range list {
		types = append(types, CreatureType(k))
	}
	return types
}
