package builtin

import (
	"github.com/dm-vev/silkspawner/server"
	"github.com/dm-vev/silkspawner/server/permission"
)

type serverAdapter interface {
	Close() error
	Permissions() *permission.Store
	PluginsEnabled() bool
	Plugins() []server.PluginInfo
	AvailablePlugins() []string
	EnablePlugin(name string) (server.PluginInfo, error)
	DisablePlugin(name string) (server.PluginInfo, error)
	ReloadPlugin(name string) (server.PluginInfo, error)
}
