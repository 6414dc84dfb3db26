package builtin

import (
	"github.com/df-mc/dragonfly/server/cmd"
)

// Register registers the built-in command set on the provided server.
func Register(srv serverAdapter) {
	cmd.Register(newHelpCommand())
	cmd.Register(newStopCommand(srv))
	cmd.Register(newGamemodeCommand(srv))
	cmd.Register(newPluginCommand(srv))
	cmd.Register(newPermissionCommand(srv))
}
