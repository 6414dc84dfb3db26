package entity

import (
	"math/rand/v2"
	"testing"
	_ "unsafe"

	dfblock "github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	dfentity "github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

func init() {
	worldFinaliseBlockRegistry()
}

//go:linkname worldFinaliseBlockRegistry github.com/df-mc/dragonfly/server/world.finaliseBlockRegistry
func worldFinaliseBlockRegistry()

type deathRecorder struct {
	world.NopHandler
	calls  int
	killer world.Entity
	loot   string
}

func (d *deathRecorder) HandleCreatureDeath(_ *world.Tx, c *Creature, killer world.Entity, drops *[]item.Stack) {
	d.calls++
	d.killer = killer
	d.loot = c.LootSource()
	*drops = []item.Stack{item.NewStack(item.Diamond{}, 3)}
}

func TestKindByName(t *testing.T) {
	cases := map[string]string{
		"zombie":                "ZOMBIE",
		"minecraft:cave_spider": "CAVE_SPIDER",
		"Magma-Cube":            "MAGMA_CUBE",
		" pig ":                 "PIG",
	}
	for in, want := range cases {
		k, ok := KindByName(in)
		if !ok || k.Name != want {
			t.Errorf("KindByName(%q) = %q (ok=%v), want %q", in, k.Name, ok, want)
		}
	}
	if _, ok := KindByName("ender_dragon"); ok {
		t.Fatalf("expected unknown kind to be rejected")
	}
	names := KindNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("kind names not sorted: %v", names)
		}
	}
}

func TestRollLootRespectsRanges(t *testing.T) {
	k, _ := KindByName("COW")
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		for _, s := range k.RollLoot(r, nil) {
			switch s.Item().(type) {
			case item.Beef:
				if s.Count() < 1 || s.Count() > 3 {
					t.Fatalf("beef count out of range: %d", s.Count())
				}
			case item.Leather:
				if s.Count() < 1 || s.Count() > 2 {
					t.Fatalf("leather count out of range: %d", s.Count())
				}
			default:
				t.Fatalf("unexpected drop %v", s)
			}
		}
	}
	if xp := k.RollXP(r); xp < 1 || xp > 3 {
		t.Fatalf("xp out of range: %d", xp)
	}
}

func TestCreatureNBTRoundTrip(t *testing.T) {
	k, _ := KindByName("SKELETON")
	typ := CreatureType(k)
	data := &world.EntityData{}
	CreatureConfig{Kind: k, Health: 7, LootSource: "SKELETON"}.Apply(data)

	decoded := &world.EntityData{}
	typ.DecodeNBT(typ.EncodeNBT(data), decoded)
	s := decoded.Data.(*creatureState)
	if s.health != 7 || s.loot != "SKELETON" || s.kind.Name != "SKELETON" {
		t.Fatalf("unexpected decoded state %+v", s)
	}
	if len(s.equipment) != 1 {
		t.Fatalf("expected skeleton to be equipped with a bow, got %v", s.equipment)
	}
	if typ.EncodeEntity() != "minecraft:skeleton" {
		t.Fatalf("unexpected identifier %q", typ.EncodeEntity())
	}
}

func TestCreatureDiesAndDropsLoot(t *testing.T) {
	w := world.Config{Entities: Registry}.New()
	defer w.Close()
	rec := &deathRecorder{}
	w.Handle(rec)

	k, _ := KindByName("CHICKEN")
	var (
		first, second, third bool
		dead                 bool
		diamonds             int
	)
	<-w.Exec(func(tx *world.Tx) {
		base := cube.Pos{0, 63, 0}
		tx.SetBlock(base, dfblock.Stone{}, nil)
		c := tx.AddEntity(NewCreature(world.EntitySpawnOpts{Position: base.Vec3Middle().Add(mgl64.Vec3{0, 0.5, 0})}, CreatureConfig{Kind: k, LootSource: "CHICKEN"})).(*Creature)

		first = c.Attack(nil, 3)
		second = c.Attack(nil, 3)
		for i := 0; i < immunityTicks; i++ {
			c.Tick(tx, int64(i))
		}
		third = c.Attack(nil, 3)
		dead = c.Dead()

		for e := range tx.Entities() {
			if e.H().Type() != dfentity.ItemType {
				continue
			}
			if ent, ok := e.(*dfentity.Ent); ok {
				if b, ok := ent.Behaviour().(*dfentity.ItemBehaviour); ok {
					if _, ok := b.Item().Item().(item.Diamond); ok {
						diamonds += b.Item().Count()
					}
				}
			}
		}
	})
	if !first || second || !third {
		t.Fatalf("unexpected attack results: first=%v second=%v third=%v", first, second, third)
	}
	if !dead {
		t.Fatalf("expected creature to die after 6 damage")
	}
	if rec.calls != 1 || rec.loot != "CHICKEN" || rec.killer != nil {
		t.Fatalf("unexpected death handler calls: %+v", rec)
	}
	if diamonds != 3 {
		t.Fatalf("expected drops replaced by the handler to be spawned, got %d diamonds", diamonds)
	}
}

func TestAttackDamage(t *testing.T) {
	if got := AttackDamage(nil, false); got != 1 {
		t.Fatalf("expected bare hand damage of 1, got %v", got)
	}
	if got := AttackDamage(nil, true); got != 1.5 {
		t.Fatalf("expected critical bare hand damage of 1.5, got %v", got)
	}
}
