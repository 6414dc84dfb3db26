package builtin

import (
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

type gamemodeCommand struct {
	srv     serverAdapter
	Mode    gameModeValue              `cmd:"mode"`
	Targets cmd.Optional[[]cmd.Target] `cmd:"target"`
}

func newGamemodeCommand(srv serverAdapter) cmd.Command {
	return cmd.New("gamemode", "Changes a player's game mode.", []string{"gm"}, gamemodeCommand{srv: srv})
}

func (g gamemodeCommand) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	mode, alias, ok := parseGameMode(string(g.Mode))
	if !ok {
		o.Errorf("Invalid game mode: %s.", g.Mode)
		return
	}

	targets, ok := g.Targets.Load()
	if !ok {
		p, isPlayer := src.(*player.Player)
		if !isPlayer {
			o.Error("No targets matched selector.")
			return
		}
		targets = []cmd.Target{p}
	}

	players := targetPlayers(targets)
	if len(players) == 0 {
		o.Error("No targets matched selector.")
		return
	}

	for _, p := range players {
		p.SetGameMode(mode)
	}
	o.Printf("Set %s to %s mode.", nameList(players), alias)
}

func (g gamemodeCommand) Allow(src cmd.Source) bool {
	return allowed(g.srv, src, "server.command.gamemode")
}

func parseGameMode(value string) (world.GameMode, string, bool) {
	switch strings.ToLower(value) {
	case "0", "s", "survival":
		return world.GameModeSurvival, "survival", true
	case "1", "c", "creative":
		return world.GameModeCreative, "creative", true
	case "2", "a", "adventure":
		return world.GameModeAdventure, "adventure", true
	case "3", "sp", "spectator":
		return world.GameModeSpectator, "spectator", true
	}
	return nil, "", false
}
