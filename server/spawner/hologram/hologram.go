// Package hologram keeps a floating text display above tracked spawners in sync with their health.
package hologram

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/block/cube"
	dfentity "github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/spawner"
	"github.com/go-gl/mathgl/mgl64"
)

// Backend names accepted by Select.
const (
	BackendRegistry = "registry"
	BackendScan     = "scan"
	BackendNone     = "none"
)

// ErrNoText is returned when a backend is constructed without a TextFunc.
var ErrNoText = errors.New("hologram: no text function configured")

// anchorOffset is the offset from the block corner to the position of the display.
var anchorOffset = mgl64.Vec3{0.5, 2.0, 0.5}

// Anchor returns the position of the display of the spawner at pos.
func Anchor(pos cube.Pos) mgl64.Vec3 {
	return pos.Vec3().Add(anchorOffset)
}

// TextFunc renders the text shown above a spawner of the type passed with health h. An empty string removes
// the display.
type TextFunc func(spawnerType string, h spawner.Health) string

// Location is the block location a display belongs to.
type Location struct {
	World *world.World
	Pos   cube.Pos
}

// Sync creates, updates and removes the displays of spawners. Implementations hold at most one display per
// Location. All methods taking a transaction must be called from within that transaction.
type Sync interface {
	// CreateOrUpdate shows the display of the spawner at pos. It is a no-op if the Sync is disabled. If
	// blockEnabled is false, any display at pos is removed instead.
	CreateOrUpdate(tx *world.Tx, pos cube.Pos, spawnerType string, h spawner.Health, blockEnabled bool)
	// Remove removes the display of the spawner at pos, if any.
	Remove(tx *world.Tx, pos cube.Pos)
	// Clear removes all displays tracked in the world of tx.
	Clear(tx *world.Tx)
	// Worlds returns the worlds that have at least one tracked display.
	Worlds() []*world.World
	// Len returns the number of tracked displays.
	Len() int
	Enabled() bool
	SetEnabled(enabled bool)
	// Name returns the backend name.
	Name() string
}

// Config holds the settings shared by all backends.
type Config struct {
	// Text renders the display text. It must be non-nil.
	Text TextFunc
	// Log is used to report failures. slog.Default is used if nil.
	Log *slog.Logger
	// Disabled starts the backend in the disabled state.
	Disabled bool
}

// Select returns the backend with the name passed. "none" and an empty name yield nil. An unknown name or a
// backend that fails to construct is logged and also yields nil, leaving the caller without display support.
func Select(name string, conf Config) Sync {
	log := conf.Log
	if log == nil {
		log = slog.Default()
	}
	var (
		s   Sync
		err error
	)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendRegistry:
		s, err = NewRegistry(conf)
	case BackendScan:
		s, err = NewScan(conf)
	case BackendNone, "":
		return nil
	default:
		log.Warn("Unknown hologram backend, holograms disabled.", "backend", name)
		return nil
	}
	if err != nil {
		log.Warn("Could not initialise hologram backend, holograms disabled.", "backend", name, "err", err)
		return nil
	}
	log.Debug("Hologram backend selected.", "backend", s.Name())
	return s
}

type base struct {
	enabled atomic.Bool
	text    TextFunc
	log     *slog.Logger
}

// init sets up b in place from conf.
func (b *base) init(conf Config) error {
	if conf.Text == nil {
		return ErrNoText
	}
	b.text, b.log = conf.Text, conf.Log
	if b.log == nil {
		b.log = slog.Default()
	}
	b.enabled.Store(!conf.Disabled)
	return nil
}

// Enabled ...
func (b *base) Enabled() bool {
	return b.enabled.Load()
}

// SetEnabled ...
func (b *base) SetEnabled(enabled bool) {
	b.enabled.Store(enabled)
}

// nameTagger is implemented by entities that carry a name tag, such as the text entity.
type nameTagger interface {
	NameTag() string
	SetNameTag(s string)
}

// isDisplay checks if e is a text entity positioned at anchor.
func isDisplay(e world.Entity, anchor mgl64.Vec3) bool {
	if e.H().Type() != dfentity.TextType {
		return false
	}
	return e.Position().ApproxEqualThreshold(anchor, 1e-4)
}

// setText changes the text of the display e if it differs from text.
func setText(e world.Entity, text string) {
	if t, ok := e.(nameTagger); ok && t.NameTag() != text {
		t.SetNameTag(text)
	}
}

// spawnDisplay adds a new text entity with text at the anchor of pos.
func spawnDisplay(tx *world.Tx, pos cube.Pos, text string) *world.EntityHandle {
	h := dfentity.NewText(text, Anchor(pos))
	tx.AddEntity(h)
	return h
}

// closeDisplay removes e from the world.
func closeDisplay(tx *world.Tx, e world.Entity) {
	if c, ok := e.(io.Closer); ok {
		_ = c.Close()
		return
	}
	tx.RemoveEntity(e)
}

// findDisplay returns the display at the anchor of pos, which may have been loaded with its chunk rather than
// spawned by a backend. Any further displays at the same anchor are closed.
func findDisplay(tx *world.Tx, pos cube.Pos, log *slog.Logger) (world.Entity, bool) {
	anchor := Anchor(pos)
	var (
		found      world.Entity
		duplicates []world.Entity
	)
	for e := range tx.Entities() {
		if !isDisplay(e, anchor) {
			continue
		}
		if found == nil {
			found = e
			continue
		}
		duplicates = append(duplicates, e)
	}
	for _, e := range duplicates {
		closeDisplay(tx, e)
	}
	if len(duplicates) > 0 {
		log.Debug("Removed duplicate holograms.", "pos", pos, "count", len(duplicates))
	}
	return found, found != nil
}
