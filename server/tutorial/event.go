package tutorial

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// Event is a player-originated event delivered to the current task of a
// session's Timeline.
type Event interface {
	event()
}

// ChatEvent is a chat message submitted by the player.
type ChatEvent struct {
	Message string
}

// CommandEvent is a command executed by the player. Name holds the command
// name without the leading slash. Args holds the remaining arguments.
type CommandEvent struct {
	Name string
	Args []string
}

// TeleportEvent is sent when the player teleported or otherwise moved to a
// new position.
type TeleportEvent struct {
	Position mgl64.Vec3
}

// BlockInteractEvent is sent when the player clicked a block.
type BlockInteractEvent struct {
	Pos   cube.Pos
	Right bool
}

// NPCInteractEvent is sent when the player interacted with their tutorial
// NPC.
type NPCInteractEvent struct{}

// ContinueEvent is sent when the player asked to continue, for example by
// running the continue command.
type ContinueEvent struct{}

func (ChatEvent) event()          {}
func (CommandEvent) event()       {}
func (TeleportEvent) event()      {}
func (BlockInteractEvent) event() {}
func (NPCInteractEvent) event()   {}
func (ContinueEvent) event()      {}
