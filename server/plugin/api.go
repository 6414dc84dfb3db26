package plugin

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

// API exposes functionality of the server core to plugins.
type API[S any, C any] struct {
	manager *Manager[S, C]
	host    Host[S, C]
	name    atomic.Value // stores string
	ctx     atomic.Pointer[context.Context]
	dataDir atomic.Value // stores string
}

func newAPI[S any, C any](manager *Manager[S, C], host Host[S, C], name string) *API[S, C] {
	api := &API[S, C]{manager: manager, host: host}
	api.name.Store(name)
	return api
}

func (api *API[S, C]) setName(name string) {
	if name == "" {
		return
	}
	api.name.Store(name)
}

func (api *API[S, C]) pluginName() string {
	if v := api.name.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "plugin"
}

func (api *API[S, C]) setContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	api.ctx.Store(&ctx)
}

// Context returns a context that is cancelled when the plugin is disabled.
func (api *API[S, C]) Context() context.Context {
	if ctx := api.ctx.Load(); ctx != nil && *ctx != nil {
		return *ctx
	}
	return context.Background()
}

func (api *API[S, C]) setDataDirectory(dir string) {
	if dir == "" {
		api.dataDir.Store("")
		return
	}
	api.dataDir.Store(filepath.Clean(dir))
}

// DataDirectory returns the path to the plugin's data directory.
func (api *API[S, C]) DataDirectory() string {
	if v := api.dataDir.Load(); v != nil {
		if dir, ok := v.(string); ok && dir != "" {
			return dir
		}
	}
	return api.manager.pluginDataDirectory(api.pluginName())
}

// DataPath resolves name inside the plugin data directory. Absolute paths and paths escaping the directory
// are rejected.
func (api *API[S, C]) DataPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("data path is empty")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("data path must be relative")
	}
	base := api.DataDirectory()
	target := filepath.Join(base, filepath.Clean(name))
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("data path escapes plugin directory")
	}
	return target, nil
}

// OpenDataFile opens or creates a file within the plugin data directory using the provided flags and permissions.
func (api *API[S, C]) OpenDataFile(name string, flag int, perm fs.FileMode) (*os.File, error) {
	path, err := api.DataPath(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if perm == 0 {
		perm = 0o644
	}
	return os.OpenFile(path, flag, perm)
}

// Go launches fn on a new goroutine tied to the plugin's lifecycle context. Panics cause the plugin to be disabled.
func (api *API[S, C]) Go(fn func(context.Context)) {
	if fn == nil {
		return
	}
	ctx := api.Context()
	name := api.pluginName()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				api.manager.handlePluginPanic(name, r)
			}
		}()
		fn(ctx)
	}()
}

// Server returns the underlying server instance.
func (api *API[S, C]) Server() S {
	return api.host.Instance()
}

// Config returns a snapshot of the server configuration at the time of the call.
func (api *API[S, C]) Config() C {
	return api.host.Config()
}

// Logger returns a logger scoped to the plugin's name for structured logging.
func (api *API[S, C]) Logger() *slog.Logger {
	logger := api.host.Logger()
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("plugin", api.pluginName())
}

// Worlds returns every world managed by the server.
func (api *API[S, C]) Worlds() []*world.World {
	return api.host.Worlds()
}

// WorldByName returns the world managed by the server with the name passed.
func (api *API[S, C]) WorldByName(name string) (*world.World, bool) {
	for _, w := range api.host.Worlds() {
		if w != nil && w.Name() == name {
			return w, true
		}
	}
	return nil, false
}

// Players exposes the server's player iterator. See the server package for usage semantics.
func (api *API[S, C]) Players(tx *world.Tx) iter.Seq[*player.Player] {
	return api.host.Players(tx)
}

// PlayerByName looks up an online player by their name.
func (api *API[S, C]) PlayerByName(name string) (*world.EntityHandle, bool) {
	return api.host.PlayerByName(name)
}

// Allowed reports if src holds the permission passed.
func (api *API[S, C]) Allowed(src cmd.Source, permission string) bool {
	return api.host.Allowed(src, permission)
}

// RegisterCommand registers a command with the global command registry.
func (api *API[S, C]) RegisterCommand(command cmd.Command) {
	if _, ok := cmd.ByAlias(command.Name()); ok {
		api.Logger().Debug("Command already registered.", "command", command.Name())
		return
	}
	cmd.Register(command)
}

// Plugins returns metadata for all currently loaded plugins.
func (api *API[S, C]) Plugins() []Info {
	return api.manager.Infos()
}

// Plugin returns a loaded plugin by name if present.
func (api *API[S, C]) Plugin(name string) (Plugin, bool) {
	return api.manager.Plugin(name)
}

// Events returns helpers for subscribing to player and world events.
func (api *API[S, C]) Events() *PluginEvents[S, C] {
	return &PluginEvents[S, C]{api: api}
}

// PluginEvents exposes registration helpers for subscribing to core event streams.
type PluginEvents[S any, C any] struct {
	api *API[S, C]
}

// OnPlayer registers a player.Handler that is invoked for every player event.
// The returned function removes the handler when called.
func (pe *PluginEvents[S, C]) OnPlayer(handler player.Handler) func() {
	if pe == nil || handler == nil {
		return func() {}
	}
	return pe.api.manager.events.addPlayer(pe.api.pluginName(), handler)
}

// OnWorld registers a world.Handler invoked for each world managed by the server. A handler that also
// implements block.SpawnerHandler or entity.DeathHandler receives those events too.
// The returned function removes the handler when called.
func (pe *PluginEvents[S, C]) OnWorld(handler world.Handler) func() {
	if pe == nil || handler == nil {
		return func() {}
	}
	return pe.api.manager.events.addWorld(pe.api.pluginName(), handler)
}

// Clear removes all handlers previously registered by the plugin.
func (pe *PluginEvents[S, C]) Clear() {
	if pe == nil {
		return
	}
	pe.api.manager.events.clear(pe.api.pluginName())
}
