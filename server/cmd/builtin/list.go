package builtin

import (
	"fmt"
	"slices"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"
)

type listCommand struct {
	srv serverAdapter
	reg tutorials
}

func newListCommand(srv serverAdapter, reg tutorials) cmd.Command {
	return cmd.New("list", "Lists players currently online and their tutorial stage.", []string{"players"}, listCommand{srv: srv, reg: reg})
}

func (l listCommand) Run(_ cmd.Source, o *cmd.Output, tx *world.Tx) {
	names := make([]string, 0)
	for p := range l.srv.Players(tx) {
		names = append(names, l.describe(p.UUID(), p.Name()))
	}
	slices.Sort(names)

	o.Printf("There are %d/%d players online.", len(names), l.srv.MaxPlayerCount())
	if len(names) != 0 {
		o.Print(strings.Join(names, ", "))
	}
}

// describe returns the name of the player followed by the tutorial stage
// they are in, if any.
func (l listCommand) describe(id uuid.UUID, name string) string {
	if stage, ok := stageOf(l.reg, id); ok {
		return fmt.Sprintf("%s (%s)", name, stage)
	}
	return name
}
