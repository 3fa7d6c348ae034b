// Package builtin holds the server commands available next to the tutorial
// commands.
package builtin

import (
	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/df-mc/dragonfly/server/cmd"
)

// Register registers the built-in command set. reg may be nil if tutorials
// are disabled.
func Register(srv serverAdapter, reg *tutorial.Registry) {
	var t tutorials
	if reg != nil {
		t = reg
	}
	cmd.Register(newHelpCommand(t))
	cmd.Register(newListCommand(srv, t))
	cmd.Register(newStopCommand(srv, t))
}
