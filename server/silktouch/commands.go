package silktouch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	dfblock "github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/block/cube/trace"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/entity"
	"github.com/dm-vev/silkspawner/server/spawner"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrUnknownType is returned when a spawner type does not name a creature kind.
	ErrUnknownType = errors.New("unknown spawner type")
	// ErrNotSpawner is returned when the block targeted is not a spawner.
	ErrNotSpawner = errors.New("block is not a spawner")
	// ErrInventoryFull is returned when a spawner item does not fit in an inventory.
	ErrInventoryFull = errors.New("inventory full")
)

const (
	// label is the name the command is registered under.
	label = "silktouchplus"
	// reach is the distance within which changetype finds the spawner looked at.
	reach = 5
)

const (
	permChangeType = "silktouchplus.command.changetype"
	permGive       = "silktouchplus.command.give"
	permReload     = "silktouchplus.command.reload"
	permCombine    = "silktouchplus.combine"
)

func newCommand() cmd.Command {
	return cmd.New(label, "Manages spawners obtained with silk touch.", []string{"stp"},
		helpCommand{},
		changeTypeCommand{},
		giveCommand{},
		reloadCommand{},
		statusCommand{},
		combineCommand{},
	)
}

// enabled returns the enabled plugin and its settings. If the plugin is disabled, an error is written to o.
func enabled(o *cmd.Output) (*Plugin, *settings, bool) {
	p := active.Load()
	if p == nil {
		o.Error("SilkTouchPlus is disabled.")
		return nil, nil, false
	}
	return p, p.settings.Load(), true
}

// allowedActive checks if src holds a permission. Every source is allowed while the plugin is disabled, so
// that the command can report it.
func allowedActive(src cmd.Source, permission string) bool {
	if p := active.Load(); p != nil {
		return p.allowed(src, permission)
	}
	return true
}

type helpCommand struct{}

func (helpCommand) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p, set, ok := enabled(o)
	if !ok {
		return
	}
	f := fields{"Label": label, "Version": Version}
	lines := set.lang.Lines("help.header", f)
	for _, entry := range []struct{ id, perm string }{
		{"help.change-type", permChangeType},
		{"help.give", permGive},
		{"help.reload", permReload},
		{"help.status", permReload},
		{"help.combine", permCombine},
	} {
		if p.allowed(src, entry.perm) {
			lines = append(lines, set.lang.Lines(entry.id, f)...)
		}
	}
	for _, line := range lines {
		o.Print(line)
	}
}

type changeTypeCommand struct {
	ChangeType cmd.SubCommand `cmd:"changetype"`
	Type       string         `cmd:"type"`
}

func (c changeTypeCommand) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, set, ok := enabled(o)
	if !ok {
		return
	}
	pl, isPlayer := src.(*player.Player)
	if !isPlayer {
		o.Print(set.lang.Prefixed("general.not-a-player", nil))
		return
	}
	pos, ok := lookedAtSpawner(tx, pl)
	if !ok {
		o.Print(set.lang.Prefixed("change-type.not-a-spawner", nil))
		return
	}
	typ, err := p.ChangeType(tx, pos, c.Type)
	switch {
	case errors.Is(err, ErrUnknownType):
		o.Print(set.lang.Prefixed("change-type.invalid", fields{"Label": label}))
	case err != nil:
		o.Print(set.lang.Prefixed("change-type.not-a-spawner", nil))
	default:
		o.Print(set.lang.Prefixed("change-type.changed", fields{"Type": typ}))
	}
}

func (changeTypeCommand) Allow(src cmd.Source) bool {
	return allowedActive(src, permChangeType)
}

// lookedAtSpawner finds the spawner the player is looking at within reach. Any other solid block in the line
// of sight hides the blocks behind it.
func lookedAtSpawner(tx *world.Tx, pl *player.Player) (cube.Pos, bool) {
	start := pl.Position().Add(mgl64.Vec3{0, pl.EyeHeight(), 0})
	end := start.Add(pl.Rotation().Vec3().Mul(reach))

	var (
		found cube.Pos
		ok    bool
	)
	trace.TraverseBlocks(start, end, func(pos cube.Pos) bool {
		switch tx.Block(pos).(type) {
		case block.MobSpawner:
			found, ok = pos, true
			return false
		case dfblock.Air:
			return true
		}
		return false
	})
	return found, ok
}

// ChangeType changes the type of the spawner at pos, keeping its health. The normalised type is returned.
func (p *Plugin) ChangeType(tx *world.Tx, pos cube.Pos, typ string) (string, error) {
	kind, ok := entity.KindByName(typ)
	if !ok {
		return "", fmt.Errorf("change type to %q: %w", typ, ErrUnknownType)
	}
	s, ok := tx.Block(pos).(block.MobSpawner)
	if !ok {
		return "", ErrNotSpawner
	}
	s.Type = kind.Name
	tx.SetBlock(pos, s, nil)
	p.track(tx, pos, s, false)
	return kind.Name, nil
}

type giveCommand struct {
	Give    cmd.SubCommand             `cmd:"give"`
	Type    string                     `cmd:"type"`
	Health  cmd.Optional[string]       `cmd:"health"`
	Targets cmd.Optional[[]cmd.Target] `cmd:"player"`
}

func (g giveCommand) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p, set, ok := enabled(o)
	if !ok {
		return
	}
	health := spawner.DefaultHealth
	if v, ok := g.Health.Load(); ok {
		percent, err := parsePercent(v)
		if err != nil {
			o.Print(set.lang.Prefixed("general.not-a-number", fields{"Value": v}))
			return
		}
		health = spawner.Health(percent / 100).Clamp(set.ceiling())
	}

	var players []*player.Player
	if targets, ok := g.Targets.Load(); ok {
		for _, t := range targets {
			if pl, ok := t.(*player.Player); ok {
				players = append(players, pl)
			}
		}
	} else if pl, ok := src.(*player.Player); ok {
		players = append(players, pl)
	}
	if len(players) == 0 {
		o.Print(set.lang.Prefixed("give.invalid", fields{"Label": label}))
		return
	}

	for _, pl := range players {
		typ, err := p.Give(pl, g.Type, health)
		switch {
		case errors.Is(err, ErrUnknownType):
			o.Print(set.lang.Prefixed("give.invalid", fields{"Label": label}))
			return
		case err != nil:
			o.Print(set.lang.Prefixed("give.full", fields{"Player": pl.Name()}))
		default:
			o.Print(set.lang.Prefixed("give.success", fields{
				"Type":   typ,
				"Health": set.format.Number(float64(health) * 100),
				"Player": pl.Name(),
			}))
		}
	}
}

func (giveCommand) Allow(src cmd.Source) bool {
	return allowedActive(src, permGive)
}

// parsePercent parses a health percentage. Negative values are clamped to zero.
func parsePercent(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse health %q: not a number", v)
	}
	return math.Max(f, 0), nil
}

// Give adds a spawner item of the type passed with health h to the inventory of pl. h is limited to the
// configured health ceiling. The normalised type is returned.
func (p *Plugin) Give(pl *player.Player, typ string, h spawner.Health) (string, error) {
	kind, ok := entity.KindByName(typ)
	if !ok {
		return "", fmt.Errorf("give %q: %w", typ, ErrUnknownType)
	}
	set := p.settings.Load()
	stack := set.spawnerItem(spawner.Record{Type: kind.Name, Health: h.Clamp(set.ceiling()), Hologram: true})
	if n, err := pl.Inventory().AddItem(stack); err != nil || n < stack.Count() {
		return kind.Name, ErrInventoryFull
	}
	return kind.Name, nil
}

type reloadCommand struct {
	Reload cmd.SubCommand `cmd:"reload"`
}

func (reloadCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	p, _, ok := enabled(o)
	if !ok {
		return
	}
	err := p.Reload()
	set := p.settings.Load()
	if err != nil {
		o.Print(set.lang.Prefixed("reload.error", nil))
		return
	}
	o.Print(set.lang.Prefixed("reload.success", nil))
}

func (reloadCommand) Allow(src cmd.Source) bool {
	return allowedActive(src, permReload)
}

type statusCommand struct {
	Status cmd.SubCommand `cmd:"status"`
}

func (statusCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	p, set, ok := enabled(o)
	if !ok {
		return
	}
	for _, line := range set.lang.Lines("status.summary", p.status()) {
		o.Print(line)
	}
}

func (statusCommand) Allow(src cmd.Source) bool {
	return allowedActive(src, permReload)
}

// status returns the message fields describing the spawners tracked.
func (p *Plugin) status() fields {
	holograms := 0
	if p.holograms != nil {
		holograms = p.holograms.Len()
	}
	m := p.metrics.Snapshot()
	stats := p.index.Stats()
	return fields{
		"Tracked":   p.renders.Len(),
		"Holograms": holograms,
		"Backend":   p.hologramBackend(),
		"Cycles":    m.Cycles,
		"Actions":   m.Actions,
		"Queue":     fmt.Sprintf("%d/%d", stats.QueueDepth, stats.QueueCapacity),
		"Dropped":   stats.Dropped,
	}
}

type combineCommand struct {
	Combine cmd.SubCommand `cmd:"combine"`
}

func (combineCommand) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p, set, ok := enabled(o)
	if !ok {
		return
	}
	pl, isPlayer := src.(*player.Player)
	if !isPlayer {
		o.Print(set.lang.Prefixed("general.not-a-player", nil))
		return
	}
	main, off := pl.HeldItems()
	result, res := set.conf.AnvilRule().Combine(main, off, p.allowed(src, permCombine))
	switch res {
	case AnvilBook, AnvilTool:
		pl.SetHeldItems(result, item.Stack{})
		o.Print(set.lang.Prefixed("combine.success", fields{"Result": itemName(result)}))
	case AnvilBlocked:
		o.Print(set.lang.Prefixed("combine.blocked", nil))
	default:
		o.Print(set.lang.Prefixed("combine.nothing", nil))
	}
}
