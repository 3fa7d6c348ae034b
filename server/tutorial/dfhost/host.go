// Package dfhost runs tutorials on a dragonfly server. It shows tutorial
// output to players, spawns the tutorial guides, translates player actions
// into tutorial events and registers the /tutorial and /line commands.
//
// The tutorial Registry runs on its own Scheduler. Code in this package that
// runs on a world goroutine never waits for that Scheduler: it only posts
// work to it with Exec. The Scheduler, in turn, may wait for worlds.
package dfhost

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/sound"
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/text"
)

var (
	// ErrUnknownWorld is returned for locations in a world the Host was not
	// configured with.
	ErrUnknownWorld = errors.New("unknown tutorial world")
	// ErrPlayerOffline is returned when a player is not connected.
	ErrPlayerOffline = errors.New("player is offline")
)

// Players looks up connected players. *server.Server implements it.
type Players interface {
	Player(id uuid.UUID) (*world.EntityHandle, bool)
}

// Config holds the dependencies of a Host.
type Config struct {
	// Log is the Logger used by the Host. If nil, slog.Default() is used.
	Log *slog.Logger
	// Players resolves connected players.
	Players Players
	// Worlds are the tutorial worlds by name. Every world named by a
	// tutorial Definition must be present.
	Worlds map[string]*world.World
}

// Host connects a tutorial Registry to a dragonfly server. It implements
// tutorial.Presenter and tutorial.NPCProvider.
type Host struct {
	conf  Config
	log   *slog.Logger
	reg   *tutorial.Registry
	npcs  *npcs
	lines *Lines
}

// New returns a Host for the Config. Attach must be called with the Registry
// using the Host before players are handled.
func (conf Config) New() *Host {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	log := conf.Log.With("subsystem", "tutorial-host")
	return &Host{
		conf:  conf,
		log:   log,
		npcs:  &npcs{byPlayer: make(map[uuid.UUID]*npc)},
		lines: NewLines(),
	}
}

// Attach binds the Registry to the Host and registers the tutorial commands.
func (h *Host) Attach(reg *tutorial.Registry) {
	h.reg = reg
	registerCommands(h)
}

// Prepare resets the lines the player drew before a stage starts. It may be
// used as tutorial.Definition.Prepare.
func (h *Host) Prepare(s *tutorial.Session, _ int, done func(error)) {
	h.lines.Reset(s.ID())
	done(nil)
}

// post runs f on the tutorial Scheduler.
func (h *Host) post(f func()) {
	h.reg.Scheduler().Exec(f)
}

func (h *Host) world(name string) (*world.World, error) {
	w, ok := h.conf.Worlds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorld, name)
	}
	return w, nil
}

// withPlayer runs f in the world of the player and waits for it to finish.
// It reports whether the player was found.
func (h *Host) withPlayer(id uuid.UUID, f func(p *player.Player)) bool {
	handle, ok := h.conf.Players.Player(id)
	if !ok {
		return false
	}
	found := false
	handle.ExecWorld(func(_ *world.Tx, e world.Entity) {
		if p, ok := e.(*player.Player); ok {
			found = true
			f(p)
		}
	})
	return found
}

var messagePrefix = text.Colourf("<aqua>[Tutorial]</aqua> ")

func formatMessage(msg string) string {
	return messagePrefix + msg
}

func soundOf(s tutorial.Sound) world.Sound {
	switch s {
	case tutorial.SoundInfo:
		return sound.Experience{}
	case tutorial.SoundDone:
		return sound.LevelUp{}
	case tutorial.SoundError:
		return sound.ItemBreak{}
	case tutorial.SoundClick:
		return sound.Click{}
	}
	return nil
}

func (h *Host) ShowMessage(id uuid.UUID, msg string, s tutorial.Sound) {
	h.withPlayer(id, func(p *player.Player) {
		p.Message(formatMessage(msg))
		if snd := soundOf(s); snd != nil {
			p.PlaySound(snd)
		}
	})
}

func (h *Host) ShowProgress(id uuid.UUID, msg string) {
	h.withPlayer(id, func(p *player.Player) {
		p.SendTip(msg)
	})
}

// marker is a floating text placed for a tip.
type marker struct {
	id     string
	w      *world.World
	handle *world.EntityHandle
}

func (m *marker) ID() string { return m.id }

func (h *Host) PlaceMarker(_ uuid.UUID, id string, loc tutorial.Location, content string) (tutorial.Marker, error) {
	w, err := h.world(loc.World)
	if err != nil {
		return nil, fmt.Errorf("place tip %q: %w", id, err)
	}
	m := &marker{id: id, w: w, handle: entity.NewText(content, loc.Pos)}
	w.Exec(func(tx *world.Tx) {
		tx.AddEntity(m.handle)
	})
	return m, nil
}

func (h *Host) RemoveMarker(m tutorial.Marker) {
	mk, ok := m.(*marker)
	if !ok {
		return
	}
	removeEntity(mk.w, mk.handle)
}

// Teleport moves the player to loc, switching worlds if needed.
func (h *Host) Teleport(id uuid.UUID, loc tutorial.Location) error {
	dest, err := h.world(loc.World)
	if err != nil {
		return fmt.Errorf("teleport: %w", err)
	}
	handle, ok := h.conf.Players.Player(id)
	if !ok {
		return fmt.Errorf("teleport: %w", ErrPlayerOffline)
	}
	executed := handle.ExecWorld(func(tx *world.Tx, e world.Entity) {
		if tx.World() == dest {
			if p, ok := e.(*player.Player); ok {
				p.Teleport(loc.Pos)
			}
			return
		}
		moved := tx.RemoveEntity(e)
		if moved == nil {
			return
		}
		dest.Exec(func(tx *world.Tx) {
			if p, ok := tx.AddEntity(moved).(*player.Player); ok {
				p.Teleport(loc.Pos)
			}
		})
	})
	if !executed {
		return fmt.Errorf("teleport: %w", ErrPlayerOffline)
	}
	return nil
}

func removeEntity(w *world.World, handle *world.EntityHandle) {
	w.Exec(func(tx *world.Tx) {
		if e, ok := handle.Entity(tx); ok {
			tx.RemoveEntity(e)
		}
	})
}

var (
	_ tutorial.Presenter   = (*Host)(nil)
	_ tutorial.NPCProvider = (*Host)(nil)
)
