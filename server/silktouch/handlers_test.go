package silktouch

import (
	"slices"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/event"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/spawner"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// spawnPlayer adds a survival player holding held to the world of tx.
func spawnPlayer(tx *world.Tx, held item.Stack) *player.Player {
	conf := player.Config{
		Name:     "Miner",
		UUID:     uuid.New(),
		Position: mgl64.Vec3{0.5, 65, 0.5},
		GameMode: world.GameModeSurvival,
	}
	pl := tx.AddEntity(world.NewEntity(player.Type, conf)).(*player.Player)
	pl.SetHeldItems(held, item.Stack{})
	return pl
}

func TestPlayerHandlerBreakDropsSpawner(t *testing.T) {
	pickaxe := item.NewStack(item.Pickaxe{Tier: item.ToolTierDiamond}, 1)
	cases := []struct {
		name     string
		held     item.Stack
		creative bool
		denied   bool
		drop     bool
	}{
		{name: "silk touch two", held: silkTouch(pickaxe, 2), drop: true},
		{name: "silk touch one", held: silkTouch(pickaxe, 1)},
		{name: "stone pickaxe", held: silkTouch(item.NewStack(item.Pickaxe{Tier: item.ToolTierStone}, 1), 2)},
		{name: "empty hand", held: item.Stack{}},
		{name: "creative", held: silkTouch(pickaxe, 2), creative: true},
		{name: "permission denied", held: silkTouch(pickaxe, 2), denied: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := testPlugin(t, nil)
			var checked []string
			p.permitted = func(_ cmd.Source, permission string) bool {
				checked = append(checked, permission)
				return !c.denied
			}
			h := playerHandler{p: p}
			w := newWorld(t)
			pos := cube.Pos{0, 64, 0}

			var (
				drops []item.Stack
				xp    = 5
			)
			<-w.Exec(func(tx *world.Tx) {
				s := block.MobSpawner{Type: "SPIDER", Health: 0.4, Hologram: true}
				tx.SetBlock(pos, s, nil)
				p.track(tx, pos, s, false)

				pl := spawnPlayer(tx, c.held)
				if c.creative {
					pl.SetGameMode(world.GameModeCreative)
				}
				drops = []item.Stack{item.NewStack(block.MobSpawner{}, 1)}
				h.HandleBlockBreak(event.C(pl), pos, &drops, &xp)
				tx.SetBlock(pos, nil, nil)
			})
			<-w.Exec(func(*world.Tx) {})

			if p.renders.Len() != 0 || p.holograms.Len() != 0 {
				t.Fatalf("broken spawner is still tracked, renders=%d holograms=%d", p.renders.Len(), p.holograms.Len())
			}
			if c.denied && !slices.Contains(checked, "silktouchplus.drop.SPIDER") {
				t.Fatalf("drop permission was not checked, checked %v", checked)
			}
			r, ok := spawner.Record{}, false
			if len(drops) == 1 {
				r, ok = block.RecordFromItem(drops[0])
			}
			if ok != c.drop {
				t.Fatalf("spawner item dropped = %v, want %v (drops %v)", ok, c.drop, drops)
			}
			if !c.drop {
				if xp != 5 {
					t.Fatalf("ordinary break changed xp to %d", xp)
				}
				return
			}
			if r.Type != "SPIDER" || r.Health != 0.4 || xp != 0 {
				t.Fatalf("dropped record = %+v with xp %d", r, xp)
			}
		})
	}
}

func TestPlayerHandlerBreakCancelledKeepsTracking(t *testing.T) {
	p := testPlugin(t, nil)
	h := playerHandler{p: p}
	w := newWorld(t)
	pos := cube.Pos{2, 64, 2}

	<-w.Exec(func(tx *world.Tx) {
		s := block.MobSpawner{Type: "ZOMBIE", Health: 0.6, Hologram: true}
		tx.SetBlock(pos, s, nil)
		p.track(tx, pos, s, false)

		ctx := event.C(spawnPlayer(tx, item.Stack{}))
		drops := []item.Stack{}
		xp := 0
		h.HandleBlockBreak(ctx, pos, &drops, &xp)
		// A handler further down the chain cancels the break.
		ctx.Cancel()
	})
	<-w.Exec(func(*world.Tx) {})

	e, ok := p.renders.Lookup(w, pos)
	if !ok || e.Tier != spawner.Health(0.6).Tier() {
		t.Fatalf("spawner left in place after a cancelled break is not tracked: %+v, %v", e, ok)
	}
	if p.holograms.Len() != 1 {
		t.Fatalf("expected the hologram to be restored, got %d", p.holograms.Len())
	}
}

func TestPlayerHandlerPlaceTracksSpawner(t *testing.T) {
	p := testPlugin(t, nil)
	h := playerHandler{p: p}
	w := newWorld(t)
	pos := cube.Pos{3, 64, 3}
	stack := p.settings.Load().spawnerItem(spawner.Record{Type: "BLAZE", Health: 0.75})

	<-w.Exec(func(tx *world.Tx) {
		pl := spawnPlayer(tx, stack)
		s := block.MobSpawner{}.WithRecord(spawner.Record{Type: "BLAZE", Health: 0.75, Hologram: true})
		h.HandleBlockPlace(event.C(pl), pos, s)
		tx.SetBlock(pos, s, nil)
	})
	// Tracking runs in a transaction queued by the handler.
	<-w.Exec(func(*world.Tx) {})

	e, ok := p.renders.Lookup(w, pos)
	if !ok || e.Tier != spawner.Health(0.75).Tier() {
		t.Fatalf("placed spawner not tracked: %+v, %v", e, ok)
	}
	if p.holograms.Len() != 1 {
		t.Fatalf("expected a hologram for the placed spawner, got %d", p.holograms.Len())
	}
}

func TestPlayerHandlerPlaceCancelled(t *testing.T) {
	p := testPlugin(t, nil)
	h := playerHandler{p: p}
	w := newWorld(t)
	pos := cube.Pos{3, 64, 3}
	stack := p.settings.Load().spawnerItem(spawner.Record{Type: "BLAZE", Health: 0.75})

	<-w.Exec(func(tx *world.Tx) {
		s := block.MobSpawner{}.WithRecord(spawner.Record{Type: "BLAZE", Health: 0.75, Hologram: true})
		h.HandleBlockPlace(event.C(spawnPlayer(tx, stack)), pos, s)
	})
	<-w.Exec(func(*world.Tx) {})

	if p.renders.Len() != 0 || p.holograms.Len() != 0 {
		t.Fatalf("cancelled placement was tracked, renders=%d holograms=%d", p.renders.Len(), p.holograms.Len())
	}
}

func TestPlayerHandlerRepair(t *testing.T) {
	p := testPlugin(t, nil)
	h := playerHandler{p: p}
	w := newWorld(t)
	pos := cube.Pos{0, 64, 0}
	loot := p.settings.Load().tagLoot(item.NewStack(item.RottenFlesh{}, 3), "ZOMBIE")

	var (
		cancelled bool
		after     block.MobSpawner
		left      item.Stack
	)
	<-w.Exec(func(tx *world.Tx) {
		tx.SetBlock(pos, block.MobSpawner{Type: "ZOMBIE", Health: 0.5, Hologram: true}, nil)
		pl := spawnPlayer(tx, loot)
		ctx := event.C(pl)
		h.HandleItemUseOnBlock(ctx, pos, cube.FaceUp, mgl64.Vec3{})
		cancelled = ctx.Cancelled()
		after = tx.Block(pos).(block.MobSpawner)
		left, _ = pl.HeldItems()
	})
	if !cancelled {
		t.Fatalf("repair did not cancel the interaction")
	}
	if want, _ := spawner.Health(0.5).Repair(0.001, 1); after.Health != want {
		t.Fatalf("health after repair = %v, want %v", after.Health, want)
	}
	if left.Count() != 2 {
		t.Fatalf("repair consumed %d items, want 1", 3-left.Count())
	}
	if p.renders.Len() != 1 {
		t.Fatalf("repaired spawner not tracked")
	}
}
