package dfhost

import (
	"slices"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Handler turns the actions of one player into tutorial events. Events are
// only forwarded while the player has a tutorial session.
type Handler struct {
	player.NopHandler
	h  *Host
	id uuid.UUID

	column    [2]int
	hasColumn bool
}

// Handler returns a Handler for the player passed. It should be attached
// with p.Handle.
func (h *Host) Handler(p *player.Player) *Handler {
	return &Handler{h: h, id: p.UUID()}
}

func (hd *Handler) session() (*tutorial.Session, bool) {
	s, ok := hd.h.reg.Session(hd.id)
	if !ok || !s.Active() {
		return nil, false
	}
	return s, true
}

func (hd *Handler) dispatch(e tutorial.Event) bool {
	if _, ok := hd.session(); !ok {
		return false
	}
	reg, id := hd.h.reg, hd.id
	hd.h.post(func() { reg.Dispatch(id, e) })
	return true
}

func (hd *Handler) HandleChat(ctx *player.Context, message *string) {
	s, ok := hd.session()
	if !ok {
		return
	}
	if s.AwaitingChat() {
		ctx.Cancel()
	}
	hd.dispatch(tutorial.ChatEvent{Message: *message})
}

func (hd *Handler) HandleCommandExecution(_ *player.Context, command cmd.Command, args []string) {
	hd.dispatch(tutorial.CommandEvent{Name: command.Name(), Args: slices.Clone(args)})
}

func (hd *Handler) HandleMove(_ *player.Context, newPos mgl64.Vec3, _ cube.Rotation) {
	// Only a new block column can reach a new point.
	pos := cube.PosFromVec3(newPos)
	c := [2]int{pos.X(), pos.Z()}
	if hd.hasColumn && c == hd.column {
		return
	}
	hd.column, hd.hasColumn = c, true
	hd.dispatch(tutorial.TeleportEvent{Position: newPos})
}

func (hd *Handler) HandleTeleport(_ *player.Context, pos mgl64.Vec3) {
	hd.hasColumn = false
	hd.dispatch(tutorial.TeleportEvent{Position: pos})
}

func (hd *Handler) HandleItemUseOnBlock(_ *player.Context, pos cube.Pos, _ cube.Face, _ mgl64.Vec3) {
	hd.dispatch(tutorial.BlockInteractEvent{Pos: pos, Right: true})
}

func (hd *Handler) HandleStartBreak(_ *player.Context, pos cube.Pos) {
	hd.dispatch(tutorial.BlockInteractEvent{Pos: pos})
}

func (hd *Handler) HandleBlockBreak(ctx *player.Context, _ cube.Pos, _ *[]item.Stack, _ *int) {
	if _, ok := hd.session(); ok {
		// Tutorial worlds are shared between players.
		ctx.Cancel()
	}
}

func (hd *Handler) HandleItemUseOnEntity(_ *player.Context, e world.Entity) {
	hd.interactEntity(e)
}

func (hd *Handler) HandleAttackEntity(ctx *player.Context, e world.Entity, _, _ *float64, _ *bool) {
	if hd.interactEntity(e) {
		ctx.Cancel()
	}
}

func (hd *Handler) interactEntity(e world.Entity) bool {
	g, ok := hd.h.npcs.of(hd.id)
	if !ok || !g.is(e.H()) {
		return false
	}
	return hd.dispatch(tutorial.NPCInteractEvent{})
}

func (hd *Handler) HandleToggleSneak(ctx *player.Context, after bool) {
	if !after {
		return
	}
	g, ok := hd.h.npcs.of(hd.id)
	if !ok {
		return
	}
	p := ctx.Val()
	if g.near(p.Tx().World(), p.Position()) {
		hd.dispatch(tutorial.NPCInteractEvent{})
	}
}

func (hd *Handler) HandleQuit(*player.Player) {
	reg, lines, npcs, id := hd.h.reg, hd.h.lines, hd.h.npcs, hd.id
	hd.h.post(func() {
		reg.Stop(id)
		lines.Reset(id)
		npcs.forget(id)
	})
}
