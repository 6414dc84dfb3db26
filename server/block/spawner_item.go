package block

import (
	"github.com/df-mc/dragonfly/server/item"
	"github.com/dm-vev/silkspawner/server/spawner"
)

// NewSpawnerItem returns a stack of one spawner item carrying the type and health of r. Display name and lore
// are left to the caller.
func NewSpawnerItem(r spawner.Record) item.Stack {
	return item.NewStack(MobSpawner{}, 1).
		WithValue(spawner.KeyType, r.Type).
		WithValue(spawner.KeyHealth, float64(r.Health))
}

// RecordFromItem decodes the spawner state stored in s by NewSpawnerItem. It returns false if s is not a
// spawner item or carries no type. A missing health decodes as full health and stored health is limited to
// spawner.Ceiling. The hologram of a spawner placed from an item is always shown.
func RecordFromItem(s item.Stack) (spawner.Record, bool) {
	if _, ok := s.Item().(MobSpawner); !ok {
		return spawner.Record{}, false
	}
	v, _ := s.Value(spawner.KeyType)
	typ, _ := v.(string)
	if typ = spawner.NormaliseType(typ); typ == "" {
		return spawner.Record{}, false
	}
	r := spawner.Record{Type: typ, Health: spawner.DefaultHealth, Hologram: true}
	if h, ok := s.Value(spawner.KeyHealth); ok {
		if f, ok := h.(float64); ok {
			r.Health = spawner.Health(f).Sanitise()
		}
	}
	return r, true
}
