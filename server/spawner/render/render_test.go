package render

import (
	"context"
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/spawner"
)

func TestRegistryAddReportsChanges(t *testing.T) {
	reg := NewRegistry()
	w := new(world.World)
	pos := cube.Pos{1, 64, -3}

	key, changed := reg.Add(w, pos, 1)
	if !changed {
		t.Fatalf("expected first add to change the registry")
	}
	if key.Tier != 0 || key.Pos() != pos {
		t.Fatalf("unexpected key %+v", key)
	}
	if _, changed = reg.Add(w, pos, 0.95); changed {
		t.Fatalf("expected add with an equal tier to leave the registry unchanged")
	}
	key, changed = reg.Add(w, pos, 0.35)
	if !changed || key.Tier != 6 {
		t.Fatalf("expected tier change to replace the key, got %+v (changed=%v)", key, changed)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected a single key per location, got %d", reg.Len())
	}
	e, ok := reg.Lookup(w, pos)
	if !ok || e.Tier != 6 {
		t.Fatalf("expected lookup to return the replaced key, got %+v (ok=%v)", e, ok)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry()
	w, other := new(world.World), new(world.World)
	reg.Add(w, cube.Pos{0, 0, 0}, 1)
	reg.Add(w, cube.Pos{1, 0, 0}, 0.5)
	reg.Add(other, cube.Pos{0, 0, 0}, 0.2)

	if !reg.Remove(w, cube.Pos{0, 0, 0}) {
		t.Fatalf("expected tracked key to be removed")
	}
	if reg.Remove(w, cube.Pos{0, 0, 0}) {
		t.Fatalf("expected second remove to report nothing removed")
	}
	if _, ok := reg.Lookup(other, cube.Pos{0, 0, 0}); !ok {
		t.Fatalf("expected key of another world at the same position to survive")
	}
	if n := reg.RemoveWorld(other); n != 1 {
		t.Fatalf("expected 1 key removed with the world, got %d", n)
	}
	if worlds := reg.Worlds(); len(worlds) != 1 || worlds[0] != w {
		t.Fatalf("expected only the first world to remain tracked, got %v", worlds)
	}
	reg.Clear()
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry after clear, got %d", reg.Len())
	}
}

func TestRegistryRemoveWorldForgetsOrdinal(t *testing.T) {
	reg := NewRegistry()
	first, second := new(world.World), new(world.World)
	reg.Add(first, cube.Pos{0, 0, 0}, 1)
	reg.Add(second, cube.Pos{0, 0, 0}, 1)
	kept, _ := reg.Lookup(second, cube.Pos{0, 0, 0})

	reg.RemoveWorld(first)
	if _, ok := reg.worlds[first]; ok || len(reg.worlds) != 1 {
		t.Fatalf("removed world still holds an ordinal: %v", reg.worlds)
	}

	// A world loaded after the removal must not share an ordinal with a world still tracked.
	third := new(world.World)
	reg.Add(third, cube.Pos{0, 0, 0}, 1)
	if reg.worlds[third] == reg.worlds[second] {
		t.Fatalf("new world reused ordinal %d", reg.worlds[third])
	}
	if e, _ := reg.Lookup(third, cube.Pos{0, 0, 0}); e.ID == kept.ID {
		t.Fatalf("keys of different worlds share id %d", e.ID)
	}

	reg.Clear()
	if len(reg.worlds) != 0 {
		t.Fatalf("expected clear to forget every world, got %v", reg.worlds)
	}
}

func TestRegistryEntriesOrderedByID(t *testing.T) {
	reg := NewRegistry()
	w, other := new(world.World), new(world.World)
	for i := 0; i < 32; i++ {
		reg.Add(w, cube.Pos{i, 10, -i}, spawner.Health(0.03*float64(i)))
	}
	reg.Add(other, cube.Pos{5, 5, 5}, 1)

	first := reg.Entries(w)
	if len(first) != 32 {
		t.Fatalf("expected 32 entries for the world, got %d", len(first))
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].ID > first[i].ID {
			t.Fatalf("entries not ordered by id at %d: %d > %d", i, first[i-1].ID, first[i].ID)
		}
	}
	for _, e := range first {
		if e.ID == 0 {
			t.Fatalf("expected non-zero id for %+v", e.Key)
		}
		if e.World != w {
			t.Fatalf("expected only entries of the requested world")
		}
	}
	second := reg.Entries(w)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected stable ids across snapshots, got %+v and %+v", first[i], second[i])
		}
	}
	if all := reg.Entries(nil); len(all) != 33 {
		t.Fatalf("expected 33 entries across all worlds, got %d", len(all))
	}
}

func TestCrackDuration(t *testing.T) {
	cases := []struct {
		tier int
		want time.Duration
	}{
		{tier: 0, want: 150 * time.Second},
		{tier: 4, want: 30 * time.Second},
		{tier: 9, want: 15 * time.Second},
		{tier: 12, want: 15 * time.Second},
		{tier: -1, want: 150 * time.Second},
	}
	for _, c := range cases {
		if got := CrackDuration(c.tier, DefaultInterval); got != c.want {
			t.Errorf("CrackDuration(%d) = %v, want %v", c.tier, got, c.want)
		}
	}
	if got := CrackDuration(9, 0); got != DefaultInterval {
		t.Fatalf("expected zero interval to fall back to the default, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.IncCycles()
	m.AddActions(3)
	m.AddSkipped(1)
	if snap := m.Snapshot(); snap != (MetricsSnapshot{}) {
		t.Fatalf("expected empty snapshot from nil metrics, got %+v", snap)
	}

	m = NewMetrics()
	m.AddActions(3)
	m.AddActions(0)
	m.AddSkipped(2)
	m.IncCycles()
	snap := m.Snapshot()
	if snap.Actions != 3 || snap.Skipped != 2 || snap.Cycles != 1 || snap.LastCycle.IsZero() {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestLoopCycleSkipsNilWorld(t *testing.T) {
	reg := NewRegistry()
	reg.Add(nil, cube.Pos{0, 0, 0}, 0.5)
	m := NewMetrics()
	l := NewLoop(NewBroadcaster(reg, m, 0), 0, nil)

	l.Cycle(context.Background())
	snap := m.Snapshot()
	if snap.Skipped != 1 || snap.Cycles != 1 {
		t.Fatalf("expected one skipped world and one cycle, got %+v", snap)
	}
	if l.interval != DefaultInterval {
		t.Fatalf("expected default interval, got %v", l.interval)
	}
}
