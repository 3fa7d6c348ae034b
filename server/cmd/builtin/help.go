package builtin

import (
	"sort"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"
)

// helpCommand lists commands. Players in a tutorial are also told how to go
// on with it.
type helpCommand struct {
	reg     tutorials
	Command cmd.Optional[string] `cmd:"command"`
}

func newHelpCommand(reg tutorials) cmd.Command {
	return cmd.New("help", "Shows available commands and their usage.", []string{"?"}, helpCommand{reg: reg})
}

func (h helpCommand) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	if commandName, ok := h.Command.Load(); ok {
		name := strings.ToLower(strings.TrimPrefix(commandName, "/"))
		command, found := cmd.ByAlias(name)
		if !found || len(command.Runnables(src)) == 0 {
			o.Errort(cmd.MessageUnknown, name)
			return
		}
		if desc := command.Description(); desc != "" {
			o.Print(desc)
		}
		for _, line := range strings.Split(command.Usage(), "\n") {
			o.Print(line)
		}
		return
	}

	commands := cmd.Commands()
	names := make([]string, 0, len(commands))
	for alias, command := range commands {
		if command.Name() != alias {
			continue
		}
		if len(command.Runnables(src)) == 0 {
			continue
		}
		names = append(names, alias)
	}
	if len(names) == 0 {
		o.Print("No commands available.")
		return
	}
	sort.Strings(names)

	o.Printf("Available commands (%d):", len(names))
	for _, name := range names {
		command, _ := cmd.ByAlias(name)
		line := "/" + name
		if desc := command.Description(); desc != "" {
			line += " - " + desc
		}
		o.Print(line)
	}
	h.tutorialHelp(src, o)
}

// tutorialHelp prints the tutorial commands to a source playing a tutorial.
func (h helpCommand) tutorialHelp(src cmd.Source, o *cmd.Output) {
	p, ok := src.(interface{ UUID() uuid.UUID })
	if !ok {
		return
	}
	stage, ok := stageOf(h.reg, p.UUID())
	if !ok {
		return
	}
	o.Printf("You are playing %s.", stage)
	o.Print("/tutorial continue - Go on when the guide waits for you.")
	o.Print("/tutorial - Pick another stage.")
	o.Print("/tutorial quit - Leave the tutorial.")
}
