package dfhost

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

func registerCommands(h *Host) {
	cmd.Register(cmd.New("tutorial", "Play the plot system tutorials.", []string{"tut"},
		tutorialMenu{h: h},
		tutorialContinue{h: h},
		tutorialQuit{h: h},
		tutorialStage{h: h},
		tutorialStart{h: h},
		tutorialSessions{h: h},
		tutorialStop{h: h},
	))
	cmd.Register(cmd.New("line", "Draw a line of blocks between two positions.", nil, lineCommand{h: h}))
}

func isPlayer(src cmd.Source) bool {
	_, ok := src.(*player.Player)
	return ok
}

var (
	errUnknownTutorial = errors.New("unknown tutorial")
	errStageLocked     = errors.New("stage not reached yet")
	errNotLoaded       = errors.New("tutorial could not be loaded")
)

// start starts the tutorial tut for the player at stage on the Scheduler.
// Locked stages are refused with a message to the player.
func (h *Host) start(id uuid.UUID, name string, tut, stage int) {
	h.post(func() {
		err := h.begin(id, name, tut, stage)
		switch {
		case errors.Is(err, errStageLocked):
			h.reg.Presenter().ShowMessage(id, "Complete the previous stages first.", tutorial.SoundError)
		case err != nil:
			h.log.Warn("Could not start tutorial.", "player", name, "tutorial", tut, "stage", stage, "error", err)
		}
	})
}

// begin starts the tutorial tut for the player at stage, or at the stage
// after the last one the player completed if stage is negative. A session of
// the same tutorial jumps to the stage instead, a session of another
// tutorial is stopped first. Stages after the first one the player has not
// completed yet are refused with errStageLocked. begin must run on the
// Scheduler.
func (h *Host) begin(id uuid.UUID, name string, tut, stage int) error {
	def, ok := h.reg.Tutorial(tut)
	if !ok {
		return fmt.Errorf("tutorial %d: %w", tut, errUnknownTutorial)
	}
	progress := h.reg.Progress(id, tut)
	if stage < 0 {
		// Finished tutorials are replayed from the start.
		stage = progress
		if stage >= len(def.Stages) {
			stage = 0
		}
	}
	if stage > progress {
		return fmt.Errorf("stage %d with progress %d: %w", stage, progress, errStageLocked)
	}
	if s, ok := h.reg.Session(id); ok {
		if s.Tutorial() == tut {
			return s.SetStage(stage)
		}
		s.Stop()
	}
	if !h.reg.Load(id, name, tut, stage) {
		return fmt.Errorf("tutorial %d stage %d: %w", tut, stage, errNotLoaded)
	}
	return nil
}

// tutorialMenu opens the stage menu of the tutorial being played, or the
// tutorial menu outside of a tutorial.
type tutorialMenu struct {
	h *Host
}

func (c tutorialMenu) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p := src.(*player.Player)
	if len(c.h.reg.Tutorials()) == 0 {
		o.Error("There are no tutorials.")
		return
	}
	p.SendForm(c.h.menu(p.UUID()))
}

func (tutorialMenu) Allow(src cmd.Source) bool { return isPlayer(src) }

type tutorialContinue struct {
	h        *Host
	Continue cmd.SubCommand `cmd:"continue"`
}

func (c tutorialContinue) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p := src.(*player.Player)
	if _, ok := c.h.reg.Session(p.UUID()); !ok {
		o.Error("You are not playing a tutorial.")
		return
	}
	reg, id := c.h.reg, p.UUID()
	c.h.post(func() { reg.Dispatch(id, tutorial.ContinueEvent{}) })
}

func (tutorialContinue) Allow(src cmd.Source) bool { return isPlayer(src) }

type tutorialQuit struct {
	h    *Host
	Quit cmd.SubCommand `cmd:"quit"`
}

func (c tutorialQuit) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p := src.(*player.Player)
	if _, ok := c.h.reg.Session(p.UUID()); !ok {
		o.Error("You are not playing a tutorial.")
		return
	}
	reg, lines, id := c.h.reg, c.h.lines, p.UUID()
	c.h.post(func() {
		reg.Stop(id)
		lines.Reset(id)
	})
	o.Print("You left the tutorial. Use /tutorial to continue later.")
}

func (tutorialQuit) Allow(src cmd.Source) bool { return isPlayer(src) }

type tutorialStage struct {
	h      *Host
	Stage  cmd.SubCommand `cmd:"stage"`
	Number int            `cmd:"number"`
}

func (c tutorialStage) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p := src.(*player.Player)
	s, ok := c.h.reg.Session(p.UUID())
	if !ok {
		o.Error("You are not playing a tutorial.")
		return
	}
	if n := len(s.Definition().Stages); c.Number < 1 || c.Number > n {
		o.Errorf("The stage must be between 1 and %d.", n)
		return
	}
	c.h.start(p.UUID(), p.Name(), s.Tutorial(), c.Number-1)
}

func (tutorialStage) Allow(src cmd.Source) bool { return isPlayer(src) }

type tutorialStart struct {
	h        *Host
	Start    cmd.SubCommand    `cmd:"start"`
	Tutorial int               `cmd:"tutorial"`
	Stage    cmd.Optional[int] `cmd:"stage"`
}

func (c tutorialStart) Run(src cmd.Source, o *cmd.Output, _ *world.Tx) {
	p := src.(*player.Player)
	def, ok := c.h.reg.Tutorial(c.Tutorial - 1)
	if !ok {
		o.Errorf("Tutorial %d does not exist.", c.Tutorial)
		return
	}
	stage := -1
	if n, ok := c.Stage.Load(); ok {
		if n < 1 || n > len(def.Stages) {
			o.Errorf("The stage must be between 1 and %d.", len(def.Stages))
			return
		}
		stage = n - 1
	}
	c.h.start(p.UUID(), p.Name(), c.Tutorial-1, stage)
}

func (tutorialStart) Allow(src cmd.Source) bool { return isPlayer(src) }

// tutorialSessions lists every running session.
type tutorialSessions struct {
	h        *Host
	Sessions cmd.SubCommand `cmd:"sessions"`
}

func (c tutorialSessions) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	sessions := c.h.reg.Sessions()
	if len(sessions) == 0 {
		o.Print("Nobody is playing a tutorial.")
		return
	}
	o.Printf("%d player(s) in a tutorial:", len(sessions))
	for _, s := range sessions {
		def := s.Definition()
		o.Printf("- %s: %s, stage %d/%d", s.Name(), def.Name, s.Stage()+1, len(def.Stages))
	}
}

func (tutorialSessions) Allow(src cmd.Source) bool { return !isPlayer(src) }

// tutorialStop stops the session of a player by name.
type tutorialStop struct {
	h      *Host
	Stop   cmd.SubCommand `cmd:"stop"`
	Player string         `cmd:"player"`
}

func (c tutorialStop) Run(_ cmd.Source, o *cmd.Output, _ *world.Tx) {
	sessions := c.h.reg.Sessions()
	i := slices.IndexFunc(sessions, func(s *tutorial.Session) bool {
		return strings.EqualFold(s.Name(), c.Player)
	})
	if i < 0 {
		o.Errorf("%s is not playing a tutorial.", c.Player)
		return
	}
	s := sessions[i]
	reg, id := c.h.reg, s.ID()
	c.h.post(func() { reg.Stop(id) })
	o.Printf("Stopped the tutorial of %s.", s.Name())
}

func (tutorialStop) Allow(src cmd.Source) bool { return !isPlayer(src) }

// lineCommand draws a line of blocks. It is used to outline buildings.
type lineCommand struct {
	h    *Host
	From mgl64.Vec3 `cmd:"from"`
	To   mgl64.Vec3 `cmd:"to"`
}

func (c lineCommand) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p := src.(*player.Player)
	if _, ok := c.h.reg.Session(p.UUID()); !ok {
		o.Error("Lines can only be drawn during a tutorial.")
		return
	}
	n := c.h.lines.Draw(tx, p.UUID(), c.From, c.To)
	if n == 0 {
		o.Errorf("A line can be at most %d blocks long.", maxLineLength)
		return
	}
	o.Printf("Drew a line of %d blocks, %d in total.", n, c.h.lines.Count(p.UUID()))
}

func (lineCommand) Allow(src cmd.Source) bool { return isPlayer(src) }
