// Package silktouch implements SilkTouchPlus, a plugin that lets players obtain spawners with silk touch
// and gives every spawner a health that depletes as it spawns creatures and can be repaired with their loot.
package silktouch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/spawner"
	"github.com/dm-vev/silkspawner/server/spawner/hologram"
	"github.com/dm-vev/silkspawner/server/spawner/index"
	"github.com/dm-vev/silkspawner/server/spawner/render"
)

const (
	// Name is the name the plugin is registered and enabled by.
	Name = "silktouchplus"
	// Version is the version of the plugin.
	Version = "2.0.0"
)

// active holds the enabled Plugin. Commands are registered once per process and act on the Plugin stored.
var active atomic.Pointer[Plugin]

// Registration returns the registration of the plugin, to be passed to server.Config.New.
func Registration() server.PluginRegistration {
	return server.PluginRegistration{Name: Name, Factory: New}
}

// Plugin is an enabled instance of SilkTouchPlus.
type Plugin struct {
	api *server.PluginAPI
	log *slog.Logger
	dir string

	settings atomic.Pointer[settings]

	renders     *render.Registry
	metrics     *render.Metrics
	broadcaster *render.Broadcaster
	holograms   hologram.Sync
	index       *index.Index
	cooldowns   *Cooldowns
	// random returns a number in [0, 1) used to roll the drop chance of the special repair item.
	random func() float64
	// permitted reports if a command source holds a permission.
	permitted func(src cmd.Source, permission string) bool

	mu         sync.Mutex
	unsub      []func()
	stopRender context.CancelFunc
	closed     bool
}

// New enables the plugin through the API passed.
func New(api *server.PluginAPI) (server.Plugin, error) {
	p := newPlugin(api.Logger(), api.DataDirectory())
	p.api = api
	p.permitted = api.Allowed
	if err := p.enable(); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func newPlugin(log *slog.Logger, dir string) *Plugin {
	p := &Plugin{
		log:       log,
		dir:       dir,
		renders:   render.NewRegistry(),
		metrics:   render.NewMetrics(),
		cooldowns: NewCooldowns(),
		random:    rand.Float64,
		permitted: func(cmd.Source, string) bool { return true },
	}
	p.broadcaster = render.NewBroadcaster(p.renders, p.metrics, render.DefaultInterval)
	return p
}

// Name ...
func (p *Plugin) Name() string {
	return "SilkTouchPlus"
}

// Version ...
func (p *Plugin) Version() string {
	return Version
}

func (p *Plugin) enable() error {
	if err := p.loadSettings(); err != nil {
		p.log.Warn("Enabled with errors, using the previous or default values.", "err", err)
	}
	conf := p.settings.Load().conf

	p.holograms = hologram.Select(conf.Holograms.Backend, hologram.Config{
		Text:     p.hologramText,
		Log:      p.log.With("component", "hologram"),
		Disabled: !conf.Holograms.Enabled,
	})
	if conf.Index.Enabled {
		if err := p.openIndex(conf.Index.File); err != nil {
			p.log.Warn("Could not open spawner index, spawners are restored as they spawn creatures.", "err", err)
		}
	}

	p.registerHandlers()
	p.api.RegisterCommand(newCommand())
	active.Store(p)

	p.restore()
	p.startRender()
	p.log.Info("SilkTouchPlus enabled.", "language", p.settings.Load().lang.Tag(), "holograms", p.hologramBackend())
	return nil
}

func (p *Plugin) openIndex(file string) error {
	path, err := p.api.DataPath(file)
	if err != nil {
		return fmt.Errorf("index path: %w", err)
	}
	idx, err := index.Open(path, p.log.With("component", "index"))
	if err != nil {
		return err
	}
	p.index = idx
	return nil
}

// loadSettings reads the configuration and locales from the data directory. Settings are always replaced,
// falling back to the previous configuration if config.yml could not be decoded.
func (p *Plugin) loadSettings() error {
	prev := DefaultConfig()
	if s := p.settings.Load(); s != nil {
		prev = s.conf
	}
	var errs []error
	conf, warnings, err := LoadConfig(filepath.Join(p.dir, "config.yml"), prev)
	if err != nil {
		p.log.Error("Could not load config.yml, fix any YAML syntax errors and run /silktouchplus reload.", "err", err)
		errs = append(errs, err)
	}
	for _, w := range warnings {
		p.log.Warn("Invalid config value.", "problem", w)
	}
	lang, err := NewLang(conf.Language, filepath.Join(p.dir, "locale"))
	if err != nil {
		p.log.Error("Could not load locales.", "err", err)
		errs = append(errs, err)
	}
	set := newSettings(conf, lang)
	spawner.SetCeiling(set.ceiling())
	p.settings.Store(set)
	return errors.Join(errs...)
}

func (p *Plugin) registerHandlers() {
	events := p.api.Events()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fn := range p.unsub {
		fn()
	}
	p.unsub = []func(){
		events.OnPlayer(playerHandler{p: p}),
		events.OnWorld(worldHandler{p: p}),
	}
}

// startRender starts the periodic crack animation broadcast if it is enabled, stopping a broadcast that was
// already running.
func (p *Plugin) startRender() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopRender != nil {
		p.stopRender()
		p.stopRender = nil
	}
	if p.closed || !p.settings.Load().conf.Health.ShowDamageAnimation {
		return
	}
	ctx, cancel := context.WithCancel(p.api.Context())
	p.stopRender = cancel
	loop := render.NewLoop(p.broadcaster, render.DefaultInterval, p.log.With("component", "render"))
	p.api.Go(func(context.Context) {
		loop.Run(ctx)
	})
}

// Reload reloads the configuration and locales, removes all holograms and crack animations, and restores
// them from the index. Errors are returned after the reload completed with the values that could be loaded.
func (p *Plugin) Reload() error {
	err := p.loadSettings()
	conf := p.settings.Load().conf

	p.clearDisplays()
	if p.holograms != nil {
		p.holograms.SetEnabled(conf.Holograms.Enabled)
	}
	p.registerHandlers()
	p.restore()
	p.startRender()
	p.log.Info("SilkTouchPlus reloaded.", "errors", err != nil)
	return err
}

// clearDisplays removes every hologram and crack animation. Holograms are removed in a transaction of their
// world that is not waited for, so that it may be called from within a transaction.
func (p *Plugin) clearDisplays() {
	if p.holograms != nil {
		for _, w := range p.holograms.Worlds() {
			w.Exec(p.holograms.Clear)
		}
	}
	p.renders.Clear()
}

// restore tracks the spawners stored in the index again. Rows of spawners that no longer exist are removed.
func (p *Plugin) restore() {
	if p.index == nil {
		return
	}
	p.api.Go(func(ctx context.Context) {
		rows, err := p.index.Rows(ctx)
		if err != nil {
			p.log.Error("Could not read spawner index.", "err", err)
			return
		}
		worlds := make(map[string]*world.World)
		for _, w := range p.api.Worlds() {
			worlds[worldKey(w)] = w
		}
		byWorld := make(map[*world.World][]index.Row)
		for _, row := range rows {
			if w, ok := worlds[row.World]; ok {
				byWorld[w] = append(byWorld[w], row)
			}
		}
		for w, rows := range byWorld {
			w.Exec(func(tx *world.Tx) {
				for _, row := range rows {
					s, ok := tx.Block(row.Pos).(block.MobSpawner)
					if !ok || !s.Record().Valid() {
						p.index.Delete(row.World, row.Pos)
						continue
					}
					p.track(tx, row.Pos, s, false)
				}
			})
		}
		p.log.Debug("Restored spawners from index.", "rows", len(rows))
	})
}

// Close disables the plugin, removing all holograms and crack animations.
func (p *Plugin) Close() error {
	active.CompareAndSwap(p, nil)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, fn := range p.unsub {
		fn()
	}
	p.unsub = nil
	if p.stopRender != nil {
		p.stopRender()
		p.stopRender = nil
	}
	p.mu.Unlock()

	p.clearDisplays()
	if err := p.index.Close(); err != nil {
		return fmt.Errorf("close spawner index: %w", err)
	}
	return nil
}

// hologramText renders the text of a spawner hologram.
func (p *Plugin) hologramText(spawnerType string, h spawner.Health) string {
	s := p.settings.Load()
	return s.lang.Text("spawner.hologram", s.healthFields(spawnerType, h))
}

func (p *Plugin) hologramBackend() string {
	if p.holograms == nil {
		return hologram.BackendNone
	}
	return p.holograms.Name()
}

// allowed checks if src holds the permission passed.
func (p *Plugin) allowed(src cmd.Source, permission string) bool {
	return p.permitted(src, permission)
}

// track shows the crack animation and hologram of the spawner s at pos and stores it in the index. If
// broadcast is true, the crack animation is sent to viewers immediately.
func (p *Plugin) track(tx *world.Tx, pos cube.Pos, s block.MobSpawner, broadcast bool) {
	w := tx.World()
	p.renders.Add(w, pos, s.Health)
	if p.holograms != nil {
		p.holograms.CreateOrUpdate(tx, pos, s.Type, s.Health, s.Hologram)
	}
	if broadcast && p.settings.Load().conf.Health.ShowDamageAnimation {
		if e, ok := p.renders.Lookup(w, pos); ok {
			p.broadcaster.BroadcastEntry(tx, e)
		}
	}
	p.index.Upsert(index.Row{World: worldKey(w), Pos: pos, Record: s.Record()})
}

// untrack removes the crack animation, hologram and index row of the spawner at pos.
func (p *Plugin) untrack(tx *world.Tx, pos cube.Pos) {
	p.renders.Remove(tx.World(), pos)
	if p.holograms != nil {
		p.holograms.Remove(tx, pos)
	}
	p.index.Delete(worldKey(tx.World()), pos)
}

// worldKey returns the name a world is stored in the index by.
func worldKey(w *world.World) string {
	dim := "overworld"
	switch w.Dimension() {
	case world.Nether:
		dim = "nether"
	case world.End:
		dim = "end"
	}
	return w.Name() + "/" + dim
}
