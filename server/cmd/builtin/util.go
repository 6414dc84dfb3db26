package builtin

import (
	"slices"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
)

// allowed reports if src holds the permission of a built-in command.
func allowed(srv serverAdapter, src cmd.Source, permission string) bool {
	return srv.Permissions().SourceAllowed(src, permission)
}

// targetPlayers returns the players among targets, each once and in the order first selected.
func targetPlayers(targets []cmd.Target) []*player.Player {
	var out []*player.Player
	for _, t := range targets {
		if p, ok := t.(*player.Player); ok && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// nameList returns the sorted names of players as "A", "A and B" or "A, B and C".
func nameList(players []*player.Player) string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name()
	}
	slices.Sort(names)
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// gameModeValue is the game mode argument of /gamemode, shown to clients as an enum.
type gameModeValue string

func (gameModeValue) Type() string { return "GameMode" }

func (gameModeValue) Options(cmd.Source) []string {
	return []string{"survival", "creative", "adventure", "spectator", "s", "c", "a", "sp", "0", "1", "2", "3"}
}
