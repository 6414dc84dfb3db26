package hologram

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	_ "unsafe"

	"github.com/df-mc/dragonfly/server/block/cube"
	dfentity "github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/spawner"
)

func init() {
	worldFinaliseBlockRegistry()
}

//go:linkname worldFinaliseBlockRegistry github.com/df-mc/dragonfly/server/world.finaliseBlockRegistry
func worldFinaliseBlockRegistry()

func testConfig() Config {
	return Config{
		Text: func(spawnerType string, h spawner.Health) string {
			if spawnerType == "" {
				return ""
			}
			return fmt.Sprintf("%s %s", spawnerType, spawner.NewFormatter(".").Format(h))
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.Config{Entities: dfentity.DefaultRegistry}.New()
	t.Cleanup(func() { _ = w.Close() })
	return w
}

// displays returns the name tags of all text entities at the anchor of pos.
func displays(tx *world.Tx, pos cube.Pos) []string {
	var out []string
	for e := range tx.Entities() {
		if isDisplay(e, Anchor(pos)) {
			out = append(out, e.(nameTagger).NameTag())
		}
	}
	return out
}

func TestSelect(t *testing.T) {
	conf := testConfig()
	if _, ok := Select("registry", conf).(*Registry); !ok {
		t.Fatalf("expected registry backend")
	}
	if _, ok := Select(" SCAN ", conf).(*Scan); !ok {
		t.Fatalf("expected scan backend")
	}
	for _, name := range []string{"none", "", "decentholograms"} {
		if s := Select(name, conf); s != nil {
			t.Fatalf("expected no backend for %q, got %s", name, s.Name())
		}
	}
	if s := Select("registry", Config{Log: conf.Log}); s != nil {
		t.Fatalf("expected construction failure to yield no backend")
	}
}

func TestAnchor(t *testing.T) {
	got := Anchor(cube.Pos{10, 64, -3})
	if got[0] != 10.5 || got[1] != 66 || got[2] != -2.5 {
		t.Fatalf("unexpected anchor %v", got)
	}
}

func TestBackendsKeepOneDisplay(t *testing.T) {
	for _, name := range []string{BackendRegistry, BackendScan} {
		t.Run(name, func(t *testing.T) {
			s := Select(name, testConfig())
			w := newWorld(t)
			pos := cube.Pos{1, 70, 1}

			var first, second, hidden []string
			var tracked int
			<-w.Exec(func(tx *world.Tx) {
				s.CreateOrUpdate(tx, pos, "ZOMBIE", 1, true)
				first = displays(tx, pos)
				s.CreateOrUpdate(tx, pos, "ZOMBIE", 0.5, true)
				second = displays(tx, pos)
				tracked = s.Len()
				s.CreateOrUpdate(tx, pos, "ZOMBIE", 0.5, false)
				hidden = displays(tx, pos)
			})
			if len(first) != 1 || first[0] != "ZOMBIE 100%" {
				t.Fatalf("expected one display after create, got %v", first)
			}
			if len(second) != 1 || second[0] != "ZOMBIE 50%" {
				t.Fatalf("expected display to be updated in place, got %v", second)
			}
			if tracked != 1 {
				t.Fatalf("expected 1 tracked display, got %d", tracked)
			}
			if len(hidden) != 0 || s.Len() != 0 {
				t.Fatalf("expected per-block flag to remove the display, got %v", hidden)
			}
		})
	}
}

func TestBackendDisabledAndEmptyText(t *testing.T) {
	s := Select(BackendRegistry, testConfig())
	w := newWorld(t)
	pos := cube.Pos{0, 70, 0}

	var disabled, empty []string
	<-w.Exec(func(tx *world.Tx) {
		s.SetEnabled(false)
		s.CreateOrUpdate(tx, pos, "ZOMBIE", 1, true)
		disabled = displays(tx, pos)

		s.SetEnabled(true)
		s.CreateOrUpdate(tx, pos, "ZOMBIE", 1, true)
		s.CreateOrUpdate(tx, pos, "", 1, true)
		empty = displays(tx, pos)
	})
	if len(disabled) != 0 {
		t.Fatalf("expected disabled backend to spawn nothing, got %v", disabled)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty text to remove the display, got %v", empty)
	}
}

func TestBackendsAdoptExistingDisplays(t *testing.T) {
	for _, name := range []string{BackendRegistry, BackendScan} {
		t.Run(name, func(t *testing.T) {
			s := Select(name, testConfig())
			w := newWorld(t)
			pos, loaded := cube.Pos{4, 70, 4}, cube.Pos{8, 70, 8}

			var got, removed []string
			<-w.Exec(func(tx *world.Tx) {
				// Displays saved with the chunk are loaded before any backend knows about them.
				tx.AddEntity(dfentity.NewText("stale", Anchor(pos)))
				tx.AddEntity(dfentity.NewText("duplicate", Anchor(pos)))
				s.CreateOrUpdate(tx, pos, "SPIDER", 0.25, true)
				s.CreateOrUpdate(tx, pos, "SPIDER", 0.2, true)
				got = displays(tx, pos)

				tx.AddEntity(dfentity.NewText("orphan", Anchor(loaded)))
				s.Remove(tx, loaded)
				removed = displays(tx, loaded)
			})
			if len(got) != 1 || got[0] != "SPIDER 20%" {
				t.Fatalf("expected existing displays to be adopted and deduplicated, got %v", got)
			}
			if s.Len() != 1 {
				t.Fatalf("expected 1 tracked display, got %d", s.Len())
			}
			if len(removed) != 0 {
				t.Fatalf("expected Remove to close an untracked display at the anchor, got %v", removed)
			}
		})
	}
}

func TestRegistryReplacesStaleHandle(t *testing.T) {
	r, err := NewRegistry(testConfig())
	if err != nil {
		t.Fatalf("create registry backend: %v", err)
	}
	w := newWorld(t)
	pos := cube.Pos{6, 70, 6}

	var got []string
	<-w.Exec(func(tx *world.Tx) {
		r.CreateOrUpdate(tx, pos, "BLAZE", 1, true)
		// Closing the entity behind the registry's back leaves its handle stale.
		for e := range tx.Entities() {
			if isDisplay(e, Anchor(pos)) {
				closeDisplay(tx, e)
			}
		}
		tx.AddEntity(dfentity.NewText("reloaded", Anchor(pos)))
		r.CreateOrUpdate(tx, pos, "BLAZE", 0.5, true)
		got = displays(tx, pos)
	})
	if len(got) != 1 || got[0] != "BLAZE 50%" {
		t.Fatalf("expected the reloaded display to be adopted, got %v", got)
	}
}

func TestClearOnlyAffectsWorld(t *testing.T) {
	s := Select(BackendRegistry, testConfig())
	w, other := newWorld(t), newWorld(t)
	pos := cube.Pos{2, 70, 2}

	<-w.Exec(func(tx *world.Tx) { s.CreateOrUpdate(tx, pos, "PIG", 1, true) })
	<-other.Exec(func(tx *world.Tx) { s.CreateOrUpdate(tx, pos, "COW", 1, true) })
	if got := len(s.Worlds()); got != 2 {
		t.Fatalf("expected displays in 2 worlds, got %d", got)
	}

	var left, otherLeft []string
	<-w.Exec(func(tx *world.Tx) {
		s.Clear(tx)
		left = displays(tx, pos)
	})
	<-other.Exec(func(tx *world.Tx) { otherLeft = displays(tx, pos) })
	if len(left) != 0 {
		t.Fatalf("expected cleared world to have no displays, got %v", left)
	}
	if len(otherLeft) != 1 || s.Len() != 1 {
		t.Fatalf("expected other world to keep its display, got %v", otherLeft)
	}
}
