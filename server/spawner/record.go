package spawner

import (
	"strings"
)

// Keys under which a spawner record is stored, both in the NBT of a placed spawner and in the values of a
// spawner item stack.
const (
	KeyType     = "spawner_type"
	KeyHealth   = "spawner_health"
	KeyHologram = "hologram_enabled"
)

// Record is the state persisted on every placed spawner.
type Record struct {
	// Type is the creature type the spawner produces, for example ZOMBIE.
	Type string
	// Health is the remaining durability of the spawner.
	Health Health
	// Hologram specifies if a floating label should be shown above the spawner.
	Hologram bool
}

// NewRecord returns a record for the creature type passed with full health and the hologram hidden.
func NewRecord(typ string) Record {
	return Record{Type: NormaliseType(typ), Health: DefaultHealth}
}

// Valid reports if the record describes a spawner that was set up with a creature type.
func (r Record) Valid() bool {
	return r.Type != ""
}

// EncodeNBT encodes the record into a map that can be merged into the NBT of a block entity.
func (r Record) EncodeNBT() map[string]any {
	m := map[string]any{
		KeyType:     r.Type,
		KeyHealth:   float64(r.Health),
		KeyHologram: uint8(0),
	}
	if r.Hologram {
		m[KeyHologram] = uint8(1)
	}
	return m
}

// DecodeRecord decodes a record from NBT previously produced by Record.EncodeNBT. A missing health value
// decodes as DefaultHealth and any other value is passed through Health.Sanitise.
func DecodeRecord(m map[string]any) Record {
	r := Record{Health: DefaultHealth}
	if typ, ok := m[KeyType].(string); ok {
		r.Type = NormaliseType(typ)
	}
	if h, ok := numberValue(m[KeyHealth]); ok {
		r.Health = Health(h).Sanitise()
	}
	switch v := m[KeyHologram].(type) {
	case uint8:
		r.Hologram = v != 0
	case bool:
		r.Hologram = v
	case int32:
		r.Hologram = v != 0
	}
	return r
}

// NormaliseType converts a creature type name to its canonical upper case form, so that "cave spider",
// "cave_spider" and "minecraft:cave_spider" all become CAVE_SPIDER.
func NormaliseType(typ string) string {
	typ = strings.TrimSpace(typ)
	typ = strings.TrimPrefix(strings.ToLower(typ), "minecraft:")
	typ = strings.NewReplacer(" ", "_", "-", "_").Replace(typ)
	return strings.ToUpper(typ)
}

// numberValue converts the numeric types NBT may decode a value as into a float64.
func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
