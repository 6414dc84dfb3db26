package server

import (
	"iter"
	"os"
	"os/signal"
	"syscall"

	dfserver "github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/permission"
	"github.com/dm-vev/silkspawner/server/plugin"
)

// Server wraps a Dragonfly server, adding a plugin manager, permissions and the creatures and blocks of this
// module to it.
type Server struct {
	*dfserver.Server
	conf    Config
	plugins *plugin.Manager[*Server, Config]
}

// Accept accepts an incoming player into the server like dfserver.Server.Accept. Every player accepted is
// given a handler through which plugins receive its events. A handler set through player.Player.Handle
// afterwards replaces it.
func (srv *Server) Accept() iter.Seq[*player.Player] {
	return func(yield func(*player.Player) bool) {
		for p := range srv.Server.Accept() {
			p.Handle(srv.plugins.PlayerHandlerWrap(p, combatHandler{}))
			if !yield(p) {
				return
			}
		}
	}
}

// Worlds returns the overworld, nether and end of the server.
func (srv *Server) Worlds() []*world.World {
	worlds := make([]*world.World, 0, 3)
	for _, w := range []*world.World{srv.World(), srv.Nether(), srv.End()} {
		if w != nil {
			worlds = append(worlds, w)
		}
	}
	return worlds
}

// Permissions returns the permission store of the server.
func (srv *Server) Permissions() *permission.Store {
	return srv.conf.Permissions
}

// LoadPlugins enables all plugins registered with the server that are not disabled in its configuration.
func (srv *Server) LoadPlugins() {
	srv.plugins.LoadConfigured()
}

// PluginsEnabled reports if the plugin subsystem is active.
func (srv *Server) PluginsEnabled() bool {
	return srv.plugins.Enabled()
}

// Plugins returns metadata for all currently loaded plugins.
func (srv *Server) Plugins() []PluginInfo {
	return srv.plugins.Infos()
}

// AvailablePlugins returns the names of all plugins registered with the server.
func (srv *Server) AvailablePlugins() []string {
	return srv.plugins.Available()
}

// EnablePlugin enables the registered plugin with the name passed.
func (srv *Server) EnablePlugin(name string) (PluginInfo, error) {
	return srv.plugins.Enable(name)
}

// DisablePlugin disables a loaded plugin by its name.
func (srv *Server) DisablePlugin(name string) (PluginInfo, error) {
	return srv.plugins.Disable(name)
}

// ReloadPlugin disables and re-enables a loaded plugin.
func (srv *Server) ReloadPlugin(name string) (PluginInfo, error) {
	return srv.plugins.Reload(name)
}

// Close disables all plugins and closes the server.
func (srv *Server) Close() error {
	srv.plugins.Shutdown()
	return srv.Server.Close()
}

// CloseOnProgramEnd closes the server right before the program ends, so that all data of the server are
// saved properly.
func (srv *Server) CloseOnProgramEnd() {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		if err := srv.Close(); err != nil {
			srv.conf.Log.Error("Close server.", "error", err)
		}
	}()
}
