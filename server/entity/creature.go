package entity

import (
	"math"
	"math/rand/v2"

	"github.com/df-mc/dragonfly/server/block/cube"
	dfentity "github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// DeathHandler is implemented by world handlers that want to alter the drops of creatures. It is looked up on
// the handler of the world the creature dies in.
type DeathHandler interface {
	// HandleCreatureDeath is called when c dies, before drops are spawned. killer is the entity that dealt the
	// final blow, or nil. drops may be modified.
	HandleCreatureDeath(tx *world.Tx, c *Creature, killer world.Entity, drops *[]item.Stack)
}

const (
	// immunityTicks is the number of ticks a creature cannot be hurt after being hurt.
	immunityTicks = 10
	// deathTicks is the number of ticks the death animation is shown before a dead creature is removed.
	deathTicks = 20
	// despawnTicks is the age after which a creature without players nearby despawns.
	despawnTicks = 6000
	// despawnDistance is the distance to the closest player beyond which an old creature despawns.
	despawnDistance = 32
	// wanderInterval is the average number of ticks between two wander impulses.
	wanderInterval = 80
)

// CreatureType returns the world.EntityType of creatures of the kind passed.
func CreatureType(k Kind) world.EntityType {
	return creatureType{kind: k.Name}
}

type creatureType struct {
	kind string
}

func (t creatureType) Kind() Kind {
	k, _ := KindByName(t.kind)
	return k
}

func (t creatureType) Open(tx *world.Tx, handle *world.EntityHandle, data *world.EntityData) world.Entity {
	return &Creature{tx: tx, handle: handle, data: data}
}

func (t creatureType) EncodeEntity() string {
	return t.Kind().Identifier
}

func (t creatureType) BBox(world.Entity) cube.BBox {
	return t.Kind().BBox()
}

func (t creatureType) DecodeNBT(m map[string]any, data *world.EntityData) {
	conf := CreatureConfig{Kind: t.Kind()}
	if v, ok := m["Health"].(float32); ok {
		conf.Health = float64(v)
	}
	if v, ok := m["RepairLoot"].(string); ok {
		conf.LootSource = v
	}
	s := conf.newState()
	if v, ok := m["SpawnAge"].(int32); ok {
		s.age = int(v)
	}
	data.Data = s
}

func (t creatureType) EncodeNBT(data *world.EntityData) map[string]any {
	s := data.Data.(*creatureState)
	m := map[string]any{
		"Health":   float32(s.health),
		"SpawnAge": int32(s.age),
	}
	if s.loot != "" {
		m["RepairLoot"] = s.loot
	}
	return m
}

// CreatureConfig holds the settings of a creature that is about to be spawned.
type CreatureConfig struct {
	Kind Kind
	// Health is the initial health. The maximum health of the kind is used if zero.
	Health float64
	// LootSource marks the creature as produced by a spawner of the type stored. Drops of creatures with a loot
	// source may be tagged as repair loot.
	LootSource string
}

// Apply ...
func (conf CreatureConfig) Apply(data *world.EntityData) {
	data.Data = conf.newState()
}

func (conf CreatureConfig) newState() *creatureState {
	health := conf.Health
	if health <= 0 || health > conf.Kind.MaxHealth {
		health = conf.Kind.MaxHealth
	}
	return &creatureState{
		kind:      conf.Kind,
		health:    health,
		loot:      conf.LootSource,
		equipment: conf.Kind.EquippedItems(),
		mc:        &dfentity.MovementComputer{Gravity: 0.08, Drag: 0.02, DragBeforeGravity: true},
	}
}

// NewCreature creates a creature of the kind in conf at the position in opts.
func NewCreature(opts world.EntitySpawnOpts, conf CreatureConfig) *world.EntityHandle {
	return opts.New(CreatureType(conf.Kind), conf)
}

type creatureState struct {
	kind      Kind
	health    float64
	loot      string
	equipment []item.Stack
	mc        *dfentity.MovementComputer

	age        int
	immune     int
	dead       bool
	deathTicks int
}

// Creature is a simple mob produced by spawners. It is affected by gravity, wanders around randomly, can be
// hurt by players and drops the loot of its kind when killed.
type Creature struct {
	tx     *world.Tx
	handle *world.EntityHandle
	data   *world.EntityData
}

// H ...
func (c *Creature) H() *world.EntityHandle {
	return c.handle
}

// Position ...
func (c *Creature) Position() mgl64.Vec3 {
	return c.data.Pos
}

// Rotation ...
func (c *Creature) Rotation() cube.Rotation {
	return c.data.Rot
}

// Velocity ...
func (c *Creature) Velocity() mgl64.Vec3 {
	return c.data.Vel
}

// Kind returns the kind of the creature.
func (c *Creature) Kind() Kind {
	return c.state().kind
}

// Health returns the current health of the creature.
func (c *Creature) Health() float64 {
	return c.state().health
}

// MaxHealth ...
func (c *Creature) MaxHealth() float64 {
	return c.state().kind.MaxHealth
}

// Dead checks if the creature is dead.
func (c *Creature) Dead() bool {
	return c.state().dead
}

// LootSource returns the spawner type the creature was produced by, or an empty string if its drops may not
// be used as repair loot.
func (c *Creature) LootSource() string {
	return c.state().loot
}

// SetLootSource marks the creature as produced by a spawner of the type passed.
func (c *Creature) SetLootSource(spawnerType string) {
	c.state().loot = spawnerType
}

// Equipment returns the items the creature holds.
func (c *Creature) Equipment() []item.Stack {
	return c.state().equipment
}

// HeldItems ...
func (c *Creature) HeldItems() (mainHand, offHand item.Stack) {
	if eq := c.state().equipment; len(eq) > 0 {
		mainHand = eq[0]
	}
	return mainHand, item.Stack{}
}

// Attack hurts the creature for damage dealt by attacker, knocking it away from the attacker. It returns
// false if the creature is dead or immune to damage. The creature dies if its health drops to zero.
func (c *Creature) Attack(attacker world.Entity, damage float64) bool {
	s := c.state()
	if s.dead || s.immune > 0 || damage <= 0 {
		return false
	}
	s.health = math.Max(s.health-damage, 0)
	s.immune = immunityTicks
	for _, v := range c.tx.Viewers(c.data.Pos) {
		v.ViewEntityAction(c, dfentity.HurtAction{})
	}
	if attacker != nil {
		c.knockBack(attacker.Position())
	}
	if s.health <= 0 {
		c.die(attacker)
	}
	return true
}

func (c *Creature) knockBack(src mgl64.Vec3) {
	d := c.data.Pos.Sub(src)
	d[1] = 0
	if d.Len() < 1e-6 {
		return
	}
	d = d.Normalize().Mul(0.4)
	d[1] = 0.4
	c.data.Vel = d
}

// die marks the creature as dead, lets the world handler alter the drops and spawns them.
func (c *Creature) die(killer world.Entity) {
	s := c.state()
	s.dead = true
	for _, v := range c.tx.Viewers(c.data.Pos) {
		v.ViewEntityAction(c, dfentity.DeathAction{})
	}

	r := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	drops := s.kind.RollLoot(r, s.equipment)
	if h, ok := c.tx.World().Handler().(DeathHandler); ok {
		h.HandleCreatureDeath(c.tx, c, killer, &drops)
	}
	pos := c.data.Pos.Add(mgl64.Vec3{0, 0.5, 0})
	for _, stack := range drops {
		if stack.Empty() {
			continue
		}
		vel := mgl64.Vec3{r.Float64()*0.2 - 0.1, 0.2, r.Float64()*0.2 - 0.1}
		c.tx.AddEntity(dfentity.NewItem(world.EntitySpawnOpts{Position: pos, Velocity: vel}, stack))
	}
	if killer != nil {
		if xp := s.kind.RollXP(r); xp > 0 {
			for _, orb := range dfentity.NewExperienceOrbs(pos, xp) {
				c.tx.AddEntity(orb)
			}
		}
	}
}

// Tick ...
func (c *Creature) Tick(tx *world.Tx, _ int64) {
	s := c.state()
	if s.dead {
		if s.deathTicks++; s.deathTicks >= deathTicks {
			_ = c.Close()
		}
		return
	}
	s.age++
	if s.immune > 0 {
		s.immune--
	}
	if s.age > despawnTicks && !playerWithin(tx, c.data.Pos, despawnDistance) {
		_ = c.Close()
		return
	}
	if c.data.Pos[1] < float64(tx.Range()[0])-16 {
		_ = c.Close()
		return
	}
	if s.mc.OnGround() && rand.IntN(wanderInterval) == 0 {
		yaw := rand.Float64() * 2 * math.Pi
		c.data.Vel = c.data.Vel.Add(mgl64.Vec3{math.Cos(yaw) * 0.25, 0.3, math.Sin(yaw) * 0.25})
		c.data.Rot = cube.Rotation{yaw*180/math.Pi - 90, 0}
	}

	m := s.mc.TickMovement(c, c.data.Pos, c.data.Vel, c.data.Rot, tx)
	c.data.Pos, c.data.Vel = m.Position(), m.Velocity()
	m.Send()
}

// Close removes the creature from the world.
func (c *Creature) Close() error {
	c.tx.RemoveEntity(c)
	return nil
}

func (c *Creature) state() *creatureState {
	return c.data.Data.(*creatureState)
}

// playerWithin checks if any player in tx is within dist of pos.
func playerWithin(tx *world.Tx, pos mgl64.Vec3, dist float64) bool {
	for p := range tx.Players() {
		if p.Position().Sub(pos).Len() <= dist {
			return true
		}
	}
	return false
}
