package builtin

import (
	"fmt"
	"iter"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"
)

// serverAdapter is the part of *server.Server the commands use.
type serverAdapter interface {
	Players(tx *world.Tx) iter.Seq[*player.Player]
	MaxPlayerCount() int
	Close() error
}

// tutorials is the part of *tutorial.Registry the commands use.
type tutorials interface {
	Session(id uuid.UUID) (*tutorial.Session, bool)
	Sessions() []*tutorial.Session
	Scheduler() tutorial.Scheduler
	Shutdown()
}

// stageOf describes the tutorial stage the player is in, if any.
func stageOf(reg tutorials, id uuid.UUID) (string, bool) {
	if reg == nil {
		return "", false
	}
	s, ok := reg.Session(id)
	if !ok {
		return "", false
	}
	def := s.Definition()
	return fmt.Sprintf("%s %d/%d", def.Name, s.Stage()+1, len(def.Stages)), true
}
