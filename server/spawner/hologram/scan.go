package hologram

import (
	"sync"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/spawner"
)

// Scan is a Sync that holds no entity handles. It finds the display of a spawner by looking for a text entity
// at the anchor of the block, adopting displays that survived a restart or a reload. Duplicate displays found
// at an anchor are removed.
type Scan struct {
	base

	mu    sync.Mutex
	known map[Location]struct{}
}

// NewScan creates a Scan backend.
func NewScan(conf Config) (*Scan, error) {
	s := &Scan{known: make(map[Location]struct{})}
	if err := s.init(conf); err != nil {
		return nil, err
	}
	return s, nil
}

// Name ...
func (*Scan) Name() string {
	return BackendScan
}

// CreateOrUpdate ...
func (s *Scan) CreateOrUpdate(tx *world.Tx, pos cube.Pos, spawnerType string, h spawner.Health, blockEnabled bool) {
	if !s.Enabled() {
		return
	}
	text := ""
	if blockEnabled {
		text = s.text(spawnerType, h)
	}
	if text == "" {
		s.Remove(tx, pos)
		return
	}
	if e, ok := s.find(tx, pos); ok {
		setText(e, text)
	} else {
		spawnDisplay(tx, pos, text)
	}
	s.mu.Lock()
	s.known[Location{World: tx.World(), Pos: pos}] = struct{}{}
	s.mu.Unlock()
}

// Remove ...
func (s *Scan) Remove(tx *world.Tx, pos cube.Pos) {
	s.mu.Lock()
	delete(s.known, Location{World: tx.World(), Pos: pos})
	s.mu.Unlock()

	if e, ok := s.find(tx, pos); ok {
		closeDisplay(tx, e)
	}
}

// Clear ...
func (s *Scan) Clear(tx *world.Tx) {
	w := tx.World()
	s.mu.Lock()
	var positions []cube.Pos
	for loc := range s.known {
		if loc.World == w {
			positions = append(positions, loc.Pos)
			delete(s.known, loc)
		}
	}
	s.mu.Unlock()

	for _, pos := range positions {
		if e, ok := s.find(tx, pos); ok {
			closeDisplay(tx, e)
		}
	}
}

// Worlds ...
func (s *Scan) Worlds() []*world.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	return worldsOf(s.known)
}

// Len ...
func (s *Scan) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.known)
}

func (s *Scan) find(tx *world.Tx, pos cube.Pos) (world.Entity, bool) {
	return findDisplay(tx, pos, s.log)
}
