package server

import (
	"iter"
	"log/slog"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/dm-vev/silkspawner/server/plugin"
)

type pluginHost struct {
	srv *Server
}

func newPluginHost(srv *Server) plugin.Host[*Server, Config] {
	return pluginHost{srv: srv}
}

func (h pluginHost) Instance() *Server {
	return h.srv
}

func (h pluginHost) Config() Config {
	return h.srv.conf
}

func (h pluginHost) Logger() *slog.Logger {
	return h.srv.conf.Log
}

func (h pluginHost) Worlds() []*world.World {
	return h.srv.Worlds()
}

func (h pluginHost) Players(tx *world.Tx) iter.Seq[*player.Player] {
	return h.srv.Players(tx)
}

func (h pluginHost) PlayerByName(name string) (*world.EntityHandle, bool) {
	return h.srv.PlayerByName(name)
}

func (h pluginHost) Allowed(src cmd.Source, permission string) bool {
	return h.srv.conf.Permissions.SourceAllowed(src, permission)
}

var _ plugin.Host[*Server, Config] = pluginHost{}
