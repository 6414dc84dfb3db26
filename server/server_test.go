package server

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	dfserver "github.com/df-mc/dragonfly/server"
	"github.com/dm-vev/silkspawner/server/block"
	"github.com/dm-vev/silkspawner/server/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestConfigNewWrapsWorldHandlers(t *testing.T) {
	conf := Config{Config: dfserver.Config{Log: discardLogger(), DisableResourceBuilding: true}}
	srv := conf.New()
	t.Cleanup(func() {
		for _, w := range srv.Worlds() {
			_ = w.Close()
		}
	})

	worlds := srv.Worlds()
	if len(worlds) != 3 {
		t.Fatalf("expected overworld, nether and end, got %d worlds", len(worlds))
	}
	for _, w := range worlds {
		if _, ok := w.Handler().(block.SpawnerHandler); !ok {
			t.Fatalf("expected handler of %v to forward spawner events, got %T", w.Dimension(), w.Handler())
		}
		if _, ok := w.Handler().(entity.DeathHandler); !ok {
			t.Fatalf("expected handler of %v to forward creature deaths, got %T", w.Dimension(), w.Handler())
		}
	}
	if srv.Permissions() == nil {
		t.Fatalf("expected an empty permission store to be created")
	}
	if srv.PluginsEnabled() {
		t.Fatalf("expected plugins to be disabled by default")
	}
}

func TestReadConfigWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	c, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}
	if !c.Plugins.Enabled || c.Permissions.File != "permissions.toml" {
		t.Fatalf("expected default config, got %+v", c)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}

	again, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig() of written file error = %v", err)
	}
	if again.Server.Name != c.Server.Name || len(again.Permissions.Default) != len(c.Permissions.Default) {
		t.Fatalf("expected written config to decode to the defaults, got %+v", again)
	}
}

func TestUserConfigLoadsPermissions(t *testing.T) {
	dir := t.TempDir()
	uc := DefaultConfig()
	uc.World.SaveData = false
	uc.Players.SaveData = false
	uc.Resources.Folder = filepath.Join(dir, "resources")
	uc.Permissions.File = filepath.Join(dir, "permissions.toml")

	conf, err := uc.Config(discardLogger())
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	if !conf.Permissions.Allowed("Steve", "silktouchplus.drop.ZOMBIE") {
		t.Fatalf("expected default grants to be applied")
	}
	if conf.Permissions.Allowed("Steve", "silktouchplus.command.give") {
		t.Fatalf("expected command permissions not to be granted by default")
	}
	if len(conf.Entities.Types()) != len(entity.Registry.Types()) {
		t.Fatalf("expected creature entity registry to be used")
	}
}
