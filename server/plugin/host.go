package plugin

import (
	"iter"
	"log/slog"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

// Host exposes the subset of server functionality required by the plugin
// manager and APIs.
type Host[S any, C any] interface {
	// Instance returns the underlying server value.
	Instance() S
	// Config returns a snapshot of the server configuration.
	Config() C
	// Logger returns the logger used for structured diagnostics.
	Logger() *slog.Logger
	// Worlds returns every world managed by the server.
	Worlds() []*world.World
	// Players exposes the server's player iterator.
	Players(tx *world.Tx) iter.Seq[*player.Player]
	// PlayerByName looks up an online player by name.
	PlayerByName(name string) (*world.EntityHandle, bool)
	// Allowed reports if the source of a command or action holds a permission.
	Allowed(src cmd.Source, permission string) bool
}
