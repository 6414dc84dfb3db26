package block

import (
	"math/rand/v2"
	"time"

	dfblock "github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/block/model"
	"github.com/df-mc/dragonfly/server/event"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/entity"
	"github.com/dm-vev/silkspawner/server/spawner"
	"github.com/go-gl/mathgl/mgl64"
)

// SpawnerHandler is implemented by world handlers that want to be notified before a MobSpawner produces a
// creature. It is looked up on the handler of the world the spawner is in.
type SpawnerHandler interface {
	// HandleSpawnerSpawn is called before the spawner at pos spawns a creature configured by conf. Cancelling
	// ctx prevents the creature and any further creatures of the same spawn cycle from being spawned. The
	// handler may change the spawner block, which is read again after the call.
	HandleSpawnerSpawn(ctx *world.Context, pos cube.Pos, s MobSpawner, conf *entity.CreatureConfig)
}

const (
	// spawnRange is the horizontal distance from the spawner in which creatures are placed.
	spawnRange = 4
	// activationRange is the distance a player must be within for the spawner to be active.
	activationRange = 16
	// maxNearbyCreatures is the number of creatures of the spawner's kind near it above which it stops.
	maxNearbyCreatures = 6
)

// spawnDelay is the range of ticks between two spawn cycles.
var spawnDelay = [2]int{200, 800}

// MobSpawner is a block that periodically spawns creatures of its type while a player is nearby. Besides its
// type, it carries a health value that spawner plugins may deplete and the visibility of its hologram.
type MobSpawner struct {
	// Type is the name of the creature kind spawned, such as ZOMBIE. An empty type spawns nothing.
	Type string
	// Health is the durability of the spawner.
	Health spawner.Health
	// Hologram specifies if a text display is shown above the spawner.
	Hologram bool
}

// NewMobSpawner returns a MobSpawner of the type passed at full health.
func NewMobSpawner(typ string) MobSpawner {
	return MobSpawner{Type: spawner.NormaliseType(typ), Health: spawner.DefaultHealth}
}

// Record returns the persisted state of the spawner.
func (s MobSpawner) Record() spawner.Record {
	return spawner.Record{Type: s.Type, Health: s.Health, Hologram: s.Hologram}
}

// WithRecord returns the spawner with the state of r.
func (s MobSpawner) WithRecord(r spawner.Record) MobSpawner {
	s.Type, s.Health, s.Hologram = r.Type, r.Health, r.Hologram
	return s
}

// Kind returns the creature kind spawned.
func (s MobSpawner) Kind() (entity.Kind, bool) {
	return entity.KindByName(s.Type)
}

// BreakInfo ...
func (s MobSpawner) BreakInfo() dfblock.BreakInfo {
	return dfblock.BreakInfo{
		Hardness:        5,
		BlastResistance: 25,
		Harvestable: func(t item.Tool) bool {
			return t.ToolType() == item.TypePickaxe
		},
		Effective: func(t item.Tool) bool {
			return t.ToolType() == item.TypePickaxe
		},
		Drops: func(item.Tool, []item.Enchantment) []item.Stack {
			return nil
		},
		XPDrops: dfblock.XPDropRange{15, 43},
	}
}

// LightDiffusionLevel ...
func (MobSpawner) LightDiffusionLevel() uint8 {
	return 0
}

// UseOnBlock places the spawner with the state stored in the held item.
func (s MobSpawner) UseOnBlock(pos cube.Pos, face cube.Face, _ mgl64.Vec3, tx *world.Tx, user item.User, ctx *item.UseContext) bool {
	placer, ok := user.(interface {
		PlaceBlock(pos cube.Pos, b world.Block, ctx *item.UseContext)
	})
	if !ok {
		return false
	}
	pos, ok = placePos(tx, pos, face, s)
	if !ok {
		return false
	}
	held, _ := user.HeldItems()
	if r, ok := RecordFromItem(held); ok {
		s = s.WithRecord(r)
	}
	placer.PlaceBlock(pos, s, ctx)
	if _, ok := tx.Block(pos).(MobSpawner); !ok {
		return false
	}
	tx.ScheduleBlockUpdate(pos, s, randomDelay())
	return true
}

// placePos returns the position b would be placed at when clicking face of the block at pos.
func placePos(tx *world.Tx, pos cube.Pos, face cube.Face, b world.Block) (cube.Pos, bool) {
	if r, ok := tx.Block(pos).(dfblock.Replaceable); !ok || !r.ReplaceableBy(b) {
		pos = pos.Side(face)
	}
	if pos.OutOfBounds(tx.Range()) {
		return pos, false
	}
	if r, ok := tx.Block(pos).(dfblock.Replaceable); ok && r.ReplaceableBy(b) {
		return pos, true
	}
	return pos, false
}

// RandomTick reschedules the spawn cycle of spawners that lost their scheduled update, for example after the
// chunk was reloaded.
func (s MobSpawner) RandomTick(pos cube.Pos, tx *world.Tx, _ *rand.Rand) {
	tx.ScheduleBlockUpdate(pos, s, randomDelay())
}

// ScheduledTick runs a spawn cycle and schedules the next one.
func (s MobSpawner) ScheduledTick(pos cube.Pos, tx *world.Tx, r *rand.Rand) {
	defer tx.ScheduleBlockUpdate(pos, s, randomDelay())

	kind, ok := s.Kind()
	if !ok || !playerWithin(tx, pos.Vec3Centre(), activationRange) {
		return
	}
	if nearbyCreatures(tx, pos, kind) >= maxNearbyCreatures {
		return
	}
	spawnCycle(tx, pos, 1+r.IntN(4), r)
}

// spawnCycle attempts to spawn count creatures around the spawner at pos. The spawner is read again before
// every attempt, so that changes made by a SpawnerHandler are respected. It returns the number of creatures
// spawned.
func spawnCycle(tx *world.Tx, pos cube.Pos, count int, r *rand.Rand) int {
	spawned := 0
	for i := 0; i < count; i++ {
		current, ok := tx.Block(pos).(MobSpawner)
		if !ok {
			break
		}
		kind, ok := current.Kind()
		if !ok {
			break
		}
		conf := entity.CreatureConfig{Kind: kind}
		if h, ok := tx.World().Handler().(SpawnerHandler); ok {
			ctx := event.C(tx)
			if h.HandleSpawnerSpawn(ctx, pos, current, &conf); ctx.Cancelled() {
				break
			}
		}
		spawnPos, ok := spawnPosition(tx, pos, r)
		if !ok {
			continue
		}
		tx.AddEntity(entity.NewCreature(world.EntitySpawnOpts{Position: spawnPos, Rotation: cube.Rotation{r.Float64() * 360, 0}}, conf))
		spawned++
	}
	return spawned
}

// spawnPosition picks a free position with a solid floor around pos. The spawner itself and the block on top
// of it, where the hologram floats, are never picked.
func spawnPosition(tx *world.Tx, pos cube.Pos, r *rand.Rand) (mgl64.Vec3, bool) {
	for attempt := 0; attempt < 4; attempt++ {
		candidate := pos.Add(cube.Pos{r.IntN(spawnRange*2+1) - spawnRange, r.IntN(3) - 1, r.IntN(spawnRange*2+1) - spawnRange})
		if candidate.OutOfBounds(tx.Range()) || candidate == pos || candidate == pos.Side(cube.FaceUp) {
			continue
		}
		if !passable(tx, candidate) || !passable(tx, candidate.Side(cube.FaceUp)) {
			continue
		}
		below := candidate.Side(cube.FaceDown)
		if passable(tx, below) {
			continue
		}
		return candidate.Vec3Middle(), true
	}
	return mgl64.Vec3{}, false
}

// passable checks if a creature can stand inside the block at pos.
func passable(tx *world.Tx, pos cube.Pos) bool {
	switch tx.Block(pos).Model().(type) {
	case model.Empty:
		return true
	}
	return false
}

// nearbyCreatures counts the creatures of the kind passed within spawnRange*2 of pos.
func nearbyCreatures(tx *world.Tx, pos cube.Pos, kind entity.Kind) int {
	centre, n := pos.Vec3Centre(), 0
	for e := range tx.Entities() {
		if c, ok := e.(*entity.Creature); ok && c.Kind().Name == kind.Name && c.Position().Sub(centre).Len() <= spawnRange*2 {
			n++
		}
	}
	return n
}

// playerWithin checks if any player is within dist of pos.
func playerWithin(tx *world.Tx, pos mgl64.Vec3, dist float64) bool {
	for p := range tx.Players() {
		if p.Position().Sub(pos).Len() <= dist {
			return true
		}
	}
	return false
}

func randomDelay() time.Duration {
	ticks := spawnDelay[0] + rand.IntN(spawnDelay[1]-spawnDelay[0]+1)
	return time.Duration(ticks) * time.Second / 20
}

// EncodeItem ...
func (MobSpawner) EncodeItem() (name string, meta int16) {
	return "minecraft:mob_spawner", 0
}

// EncodeBlock ...
func (MobSpawner) EncodeBlock() (string, map[string]any) {
	return "minecraft:mob_spawner", nil
}

// EncodeNBT ...
func (s MobSpawner) EncodeNBT() map[string]any {
	m := s.Record().EncodeNBT()
	m["id"] = "MobSpawner"
	if kind, ok := s.Kind(); ok {
		m["EntityIdentifier"] = kind.Identifier
	}
	return m
}

// DecodeNBT ...
func (s MobSpawner) DecodeNBT(data map[string]any) any {
	r := spawner.DecodeRecord(data)
	if r.Type == "" {
		if id, ok := data["EntityIdentifier"].(string); ok {
			r.Type = spawner.NormaliseType(id)
		}
	}
	return s.WithRecord(r)
}

// Hash ...
func (MobSpawner) Hash() (uint64, uint64) {
	return hashMobSpawner, 0
}

// Model ...
func (MobSpawner) Model() world.BlockModel {
	return model.Solid{}
}

var hashMobSpawner = dfblock.NextHash()
