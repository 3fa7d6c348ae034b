package dfhost

import (
	"fmt"
	"sync"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

// interactRadius is the distance within which sneaking counts as talking to
// the guide.
const interactRadius = 3

// npcs keeps the guide of every player. The guide is a floating name tag, so
// players talk to it by sneaking next to it or hitting it.
type npcs struct {
	mu       sync.Mutex
	byPlayer map[uuid.UUID]*npc
}

// NewNPC returns the guide for the player, replacing the previous one.
func (h *Host) NewNPC(player uuid.UUID, name string) tutorial.NPC {
	n := &npc{h: h, name: name}
	h.npcs.mu.Lock()
	defer h.npcs.mu.Unlock()
	h.npcs.byPlayer[player] = n
	return n
}

func (n *npcs) of(player uuid.UUID) (*npc, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	g, ok := n.byPlayer[player]
	return g, ok
}

// forget drops the guide of a player who left. The guide itself is removed
// when the session stops.
func (n *npcs) forget(player uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.byPlayer, player)
}

type npc struct {
	h    *Host
	name string

	mu     sync.Mutex
	w      *world.World
	pos    mgl64.Vec3
	hint   tutorial.Hint
	handle *world.EntityHandle
}

func (n *npc) Spawn(loc tutorial.Location) error {
	w, err := n.h.world(loc.World)
	if err != nil {
		return fmt.Errorf("spawn guide: %w", err)
	}
	n.Remove()

	n.mu.Lock()
	defer n.mu.Unlock()
	handle := entity.NewText(nameTag(n.name, n.hint), loc.Pos)
	n.w, n.pos, n.handle = w, loc.Pos, handle
	w.Exec(func(tx *world.Tx) {
		tx.AddEntity(handle)
	})
	return nil
}

func (n *npc) Remove() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.handle == nil {
		return
	}
	removeEntity(n.w, n.handle)
	n.w, n.handle = nil, nil
}

func (n *npc) SetHint(h tutorial.Hint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.hint == h {
		return
	}
	n.hint = h
	if n.handle == nil {
		return
	}
	handle, tag := n.handle, nameTag(n.name, h)
	n.w.Exec(func(tx *world.Tx) {
		e, ok := handle.Entity(tx)
		if !ok {
			return
		}
		if t, ok := e.(interface{ SetNameTag(string) }); ok {
			t.SetNameTag(tag)
		}
	})
}

// near reports whether pos in w is close enough to the guide to talk to it.
func (n *npc) near(w *world.World, pos mgl64.Vec3) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.handle != nil && n.w == w && withinRadius(n.pos, pos, interactRadius)
}

// is reports whether handle belongs to the guide.
func (n *npc) is(handle *world.EntityHandle) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.handle != nil && n.handle == handle
}

func withinRadius(a, b mgl64.Vec3, r float64) bool {
	return a.Sub(b).LenSqr() <= r*r
}

func nameTag(name string, h tutorial.Hint) string {
	tag := text.Colourf("<yellow>%s</yellow>", name)
	switch h {
	case tutorial.HintContinue:
		tag += "\n" + text.Colourf("<grey>Sneak here or run /tutorial continue</grey>")
	case tutorial.HintInteract:
		tag += "\n" + text.Colourf("<green>Sneak next to me</green>")
	}
	return tag
}
