package builtin

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

// stopCommand closes the server. Running tutorials are shut down first so
// that their players are returned before the worlds close.
type stopCommand struct {
	srv serverAdapter
	reg tutorials
}

func newStopCommand(srv serverAdapter, reg tutorials) cmd.Command {
	return cmd.New("stop", "Stops the tutorials and the server.", nil, stopCommand{srv: srv, reg: reg})
}

func (s stopCommand) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	if s.reg != nil {
		if n := len(s.reg.Sessions()); n > 0 {
			o.Printf("Stopping %d tutorial session(s)...", n)
		}
		// Queued, not awaited: the tutorial Scheduler may itself wait for
		// the world this command runs in.
		s.reg.Scheduler().Exec(s.reg.Shutdown)
	}
	o.Print("Stopping server...")
	if err := s.srv.Close(); err != nil {
		o.Error(err)
	}
}

func (stopCommand) Allow(src cmd.Source) bool {
	_, isPlayer := src.(*player.Player)
	return !isPlayer
}
