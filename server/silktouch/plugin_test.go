package silktouch

import (
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/plugin"
)

type testHost struct {
	worlds []*world.World
}

func (testHost) Instance() *server.Server { return nil }
func (testHost) Config() server.Config    { return server.Config{} }
func (testHost) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
func (h testHost) Worlds() []*world.World { return h.worlds }
func (testHost) Players(*world.Tx) iter.Seq[*player.Player] {
	return func(func(*player.Player) bool) {}
}
func (testHost) PlayerByName(string) (*world.EntityHandle, bool) { return nil, false }
func (testHost) Allowed(cmd.Source, string) bool                 { return true }

func newManager(t *testing.T, dir string, worlds ...*world.World) *plugin.Manager[*server.Server, server.Config] {
	t.Helper()
	m := plugin.NewManager[*server.Server, server.Config](testHost{worlds: worlds}, plugin.Config{Enabled: true, Directory: dir}, Registration())
	t.Cleanup(func() { _, _ = m.DisableAll() })
	return m
}

func enabledPlugin(t *testing.T, m *plugin.Manager[*server.Server, server.Config]) *Plugin {
	t.Helper()
	info, err := m.Enable(Name)
	if err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if info.Name != "SilkTouchPlus" || info.Version != Version {
		t.Fatalf("Enable() info = %+v", info)
	}
	p, ok := m.Plugin(Name)
	if !ok {
		t.Fatalf("plugin not loaded")
	}
	return p.(*Plugin)
}

func TestPluginEnable(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, dir)
	p := enabledPlugin(t, m)

	data := filepath.Join(dir, "data", "silktouchplus")
	for _, name := range []string{"config.yml", filepath.Join("locale", "en-US.yaml"), filepath.Join("locale", "pt-BR.yaml"), "spawners.db"} {
		if _, err := os.Stat(filepath.Join(data, name)); err != nil {
			t.Errorf("expected %s in the data directory: %v", name, err)
		}
	}
	if active.Load() != p {
		t.Fatalf("enabled plugin is not active")
	}
	if _, ok := cmd.ByAlias("stp"); !ok {
		t.Fatalf("command not registered under its alias")
	}
	if p.hologramBackend() != "registry" {
		t.Fatalf("hologram backend = %q", p.hologramBackend())
	}

	if _, err := m.Disable(Name); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if active.Load() != nil {
		t.Fatalf("disabled plugin is still active")
	}
}

func TestPluginReloadKeepsConfigOnSyntaxError(t *testing.T) {
	dir := t.TempDir()
	p := enabledPlugin(t, newManager(t, dir))
	path := filepath.Join(dir, "data", "silktouchplus", "config.yml")

	if err := os.WriteFile(path, []byte("language: pt-BR\nhealth:\n  spawn-damage: 0.25\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	set := p.settings.Load()
	if set.conf.Health.SpawnDamage != 0.25 || set.lang.Tag().String() != "pt-BR" {
		t.Fatalf("reload did not apply the new config: %+v", set.conf.Health)
	}

	if err := os.WriteFile(path, []byte("health: [broken\n  : :"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := p.Reload(); err == nil {
		t.Fatalf("expected Reload() to report the syntax error")
	}
	if got := p.settings.Load().conf.Health.SpawnDamage; got != 0.25 {
		t.Fatalf("syntax error replaced the previous config, spawn damage = %v", got)
	}
}

func TestPluginRestoresFromIndex(t *testing.T) {
	w := newWorld(t)
	dir := t.TempDir()
	m := newManager(t, dir, w)
	p := enabledPlugin(t, m)

	kept, removed := cube.Pos{0, 64, 0}, cube.Pos{8, 64, 0}
	<-w.Exec(func(tx *world.Tx) {
		for _, pos := range []cube.Pos{kept, removed} {
			s := block.MobSpawner{Type: "SPIDER", Health: 0.55, Hologram: false}
			tx.SetBlock(pos, s, nil)
			p.track(tx, pos, s, false)
		}
		tx.SetBlock(removed, nil, nil)
	})
	if _, err := m.Disable(Name); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}

	p = enabledPlugin(t, m)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := p.renders.Lookup(w, kept); ok && p.renders.Len() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("spawners were not restored from the index, tracked=%d", p.renders.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
