package render

import (
	"encoding/binary"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/spawner"
)

// Key identifies a tracked spawner together with the crack tier it is rendered at. Two keys are equal only if
// the world, the coordinates and the tier all match.
type Key struct {
	World   *world.World
	X, Y, Z int
	Tier    int
}

// Pos returns the block position of the key.
func (k Key) Pos() cube.Pos {
	return cube.Pos{k.X, k.Y, k.Z}
}

// Entry is a snapshot of a key held by a Registry together with its synthetic identifier.
type Entry struct {
	Key
	// ID is a stable identifier for the key, generated the first time it is needed and kept for as long as the
	// key stays in the registry. Broadcasts are ordered by ID.
	ID uint64
}

type location struct {
	w   *world.World
	pos cube.Pos
}

type entry struct {
	key   Key
	world uint64
	id    uint64
}

// Registry is the set of spawners that should display a crack animation. It holds at most one key per block
// location: adding a key for a location that is already tracked at another tier replaces the old key.
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[location]*entry
	// worlds assigns every world with tracked keys an ordinal that is hashed into entry identifiers. Ordinals
	// are never reused.
	worlds    map[*world.World]uint64
	lastWorld uint64
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[location]*entry), worlds: make(map[*world.World]uint64)}
}

// Add tracks the spawner at pos in w with the tier derived from h. The key stored is returned, along with
// a bool that is true if the registry changed because the location was new or its tier differed.
func (r *Registry) Add(w *world.World, pos cube.Pos, h spawner.Health) (Key, bool) {
	key := Key{World: w, X: pos[0], Y: pos[1], Z: pos[2], Tier: h.Tier()}
	loc := location{w: w, pos: pos}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[loc]; ok && existing.key == key {
		return key, false
	}
	r.entries[loc] = &entry{key: key, world: r.worldOrdinal(w)}
	return key, true
}

// Remove stops tracking the spawner at pos in w. It reports if a key was removed.
func (r *Registry) Remove(w *world.World, pos cube.Pos) bool {
	loc := location{w: w, pos: pos}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[loc]; !ok {
		return false
	}
	delete(r.entries, loc)
	return true
}

// RemoveWorld stops tracking every key of w and returns the number of keys removed.
func (r *Registry) RemoveWorld(w *world.World) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for loc := range r.entries {
		if loc.w == w {
			delete(r.entries, loc)
			n++
		}
	}
	delete(r.worlds, w)
	return n
}

// Lookup returns the entry currently tracked at pos in w.
func (r *Registry) Lookup(w *world.World, pos cube.Pos) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[location{w: w, pos: pos}]
	if !ok {
		return Entry{}, false
	}
	return Entry{Key: e.key, ID: e.identifier()}, true
}

// Entries returns a snapshot of all tracked keys ordered by their identifier. If w is non-nil, only keys
// belonging to w are returned.
func (r *Registry) Entries(w *world.World) []Entry {
	r.mu.Lock()
	out := make([]Entry, 0, len(r.entries))
	for loc, e := range r.entries {
		if w != nil && loc.w != w {
			continue
		}
		out = append(out, Entry{Key: e.key, ID: e.identifier()})
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b Entry) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return compareKeys(a.Key, b.Key)
	})
	return out
}

// Worlds returns every world that has at least one tracked key.
func (r *Registry) Worlds() []*world.World {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[*world.World]struct{}, 3)
	var worlds []*world.World
	for loc := range r.entries {
		if _, ok := seen[loc.w]; ok {
			continue
		}
		seen[loc.w] = struct{}{}
		worlds = append(worlds, loc.w)
	}
	return worlds
}

// Len returns the amount of tracked keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear removes all keys from the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	clear(r.entries)
	clear(r.worlds)
	r.mu.Unlock()
}

// worldOrdinal returns the ordinal of w, assigning the next one if w was not seen before. The caller must
// hold the write lock of the registry.
func (r *Registry) worldOrdinal(w *world.World) uint64 {
	if n, ok := r.worlds[w]; ok {
		return n
	}
	r.lastWorld++
	r.worlds[w] = r.lastWorld
	return r.lastWorld
}

// identifier returns the synthetic identifier of the entry, computing it on first use. The caller must hold
// the write lock of the registry.
func (e *entry) identifier() uint64 {
	if e.id == 0 {
		e.id = keyID(e.world, e.key)
	}
	return e.id
}

// keyID hashes the world ordinal and the fields of a key into a non-zero identifier.
func keyID(world uint64, k Key) uint64 {
	var buf [40]byte
	binary.LittleEndian.PutUint64(buf[0:], world)
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(k.X)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(k.Y)))
	binary.LittleEndian.PutUint64(buf[24:], uint64(int64(k.Z)))
	binary.LittleEndian.PutUint64(buf[32:], uint64(int64(k.Tier)))
	if id := xxhash.Sum64(buf[:]); id != 0 {
		return id
	}
	return 1
}

func compareKeys(a, b Key) int {
	for _, d := range [...]int{a.X - b.X, a.Y - b.Y, a.Z - b.Z, a.Tier - b.Tier} {
		if d != 0 {
			return d
		}
	}
	return 0
}
