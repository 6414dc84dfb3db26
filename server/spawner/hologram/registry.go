package hologram

import (
	"sync"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/spawner"
)

// Registry is a Sync that remembers the entity handle of every display it shows and updates that entity in
// place. A display not yet tracked, such as one loaded with its chunk after a restart, is looked up at the
// anchor of the spawner once and adopted.
type Registry struct {
	base

	mu      sync.Mutex
	handles map[Location]*world.EntityHandle
}

// NewRegistry creates a Registry backend.
func NewRegistry(conf Config) (*Registry, error) {
	r := &Registry{handles: make(map[Location]*world.EntityHandle)}
	if err := r.init(conf); err != nil {
		return nil, err
	}
	return r, nil
}

// Name ...
func (*Registry) Name() string {
	return BackendRegistry
}

// CreateOrUpdate ...
func (r *Registry) CreateOrUpdate(tx *world.Tx, pos cube.Pos, spawnerType string, h spawner.Health, blockEnabled bool) {
	if !r.Enabled() {
		return
	}
	text := ""
	if blockEnabled {
		text = r.text(spawnerType, h)
	}
	if text == "" {
		r.Remove(tx, pos)
		return
	}
	loc := Location{World: tx.World(), Pos: pos}

	e, ok := r.entity(tx, loc)
	if !ok {
		e, ok = findDisplay(tx, pos, r.log)
	}
	var handle *world.EntityHandle
	if ok {
		setText(e, text)
		handle = e.H()
	} else {
		handle = spawnDisplay(tx, pos, text)
	}
	r.mu.Lock()
	r.handles[loc] = handle
	r.mu.Unlock()
}

// entity returns the tracked display at loc if its handle is still valid in tx. A stale handle, such as one
// of a display whose chunk was unloaded, is forgotten.
func (r *Registry) entity(tx *world.Tx, loc Location) (world.Entity, bool) {
	r.mu.Lock()
	handle, ok := r.handles[loc]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	if e, found := handle.Entity(tx); found {
		return e, true
	}
	r.mu.Lock()
	if r.handles[loc] == handle {
		delete(r.handles, loc)
	}
	r.mu.Unlock()
	return nil, false
}

// Remove ...
func (r *Registry) Remove(tx *world.Tx, pos cube.Pos) {
	loc := Location{World: tx.World(), Pos: pos}
	r.mu.Lock()
	handle, ok := r.handles[loc]
	delete(r.handles, loc)
	r.mu.Unlock()
	if ok {
		if e, found := handle.Entity(tx); found {
			closeDisplay(tx, e)
			return
		}
	}
	if e, found := findDisplay(tx, pos, r.log); found {
		closeDisplay(tx, e)
	}
}

// Clear ...
func (r *Registry) Clear(tx *world.Tx) {
	w := tx.World()
	r.mu.Lock()
	var handles []*world.EntityHandle
	for loc, handle := range r.handles {
		if loc.World == w {
			handles = append(handles, handle)
			delete(r.handles, loc)
		}
	}
	r.mu.Unlock()

	for _, handle := range handles {
		if e, found := handle.Entity(tx); found {
			closeDisplay(tx, e)
		}
	}
}

// Worlds ...
func (r *Registry) Worlds() []*world.World {
	r.mu.Lock()
	defer r.mu.Unlock()
	return worldsOf(r.handles)
}

// Len ...
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func worldsOf[V any](m map[Location]V) []*world.World {
	seen := make(map[*world.World]struct{}, 3)
	var worlds []*world.World
	for loc := range m {
		if _, ok := seen[loc.World]; ok {
			continue
		}
		seen[loc.World] = struct{}{}
		worlds = append(worlds, loc.World)
	}
	return worlds
}
