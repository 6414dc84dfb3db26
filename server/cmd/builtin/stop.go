package builtin

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
)

type stopCommand struct {
	srv serverAdapter
}

func newStopCommand(srv serverAdapter) cmd.Command {
	return cmd.New("stop", "Stops the server.", nil, stopCommand{srv: srv})
}

func (s stopCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	o.Print("Stopping server...")
	go func() {
		// Closing waits for the worlds to finish their transactions, including the one running this command.
		_ = s.srv.Close()
	}()
}

func (s stopCommand) Allow(src cmd.Source) bool {
	return allowed(s.srv, src, "server.command.stop")
}
