package tutorial

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session is the progression of one player through a tutorial. Sessions are
// created by Registry.Load and live until they complete or are stopped.
//
// Methods other than the identity accessors, Stage, Active, Completed and
// AwaitingChat must be called on the scheduling goroutine.
type Session struct {
	reg      *Registry
	id       uuid.UUID
	name     string
	tutorial int
	def      *Definition
	log      *slog.Logger
	npc      NPC

	stage     atomic.Int32
	active    atomic.Bool
	completed atomic.Bool
	chat      atomic.Bool

	world    int
	timeline *Timeline
	gen      int
	failing  bool
	failStop Timer
}

func newSession(reg *Registry, id uuid.UUID, name string, tutorial int) *Session {
	def := reg.conf.Tutorials[tutorial]
	s := &Session{
		reg:      reg,
		id:       id,
		name:     name,
		tutorial: tutorial,
		def:      def,
		log:      reg.log.With("player", name, "tutorial", def.Name),
		npc:      reg.conf.NPCs.NewNPC(id, def.NPCName),
		world:    -1,
	}
	s.stage.Store(-1)
	s.active.Store(true)
	return s
}

// ID returns the UUID of the player.
func (s *Session) ID() uuid.UUID { return s.id }

// Name returns the name of the player.
func (s *Session) Name() string { return s.name }

// Tutorial returns the index of the tutorial in the Registry.
func (s *Session) Tutorial() int { return s.tutorial }

// Definition returns the tutorial the session runs.
func (s *Session) Definition() *Definition { return s.def }

// Stage returns the index of the current stage. It is -1 before the first
// stage starts and equal to the number of stages once completed.
func (s *Session) Stage() int { return int(s.stage.Load()) }

// Active reports whether the session has not been stopped yet.
func (s *Session) Active() bool { return s.active.Load() }

// AwaitingChat reports whether the current task expects a chat answer.
// Hosts use it to keep answers out of public chat.
func (s *Session) AwaitingChat() bool { return s.chat.Load() }

// Completed reports whether the player finished every stage.
func (s *Session) Completed() bool { return s.completed.Load() }

// World returns the index of the world the session is in, or -1 before the
// first world switch.
func (s *Session) World() int { return s.world }

// WorldName returns the name of the world the session is in, or an empty
// string before the first world switch.
func (s *Session) WorldName() string {
	if s.world < 0 {
		return ""
	}
	return s.def.Worlds[s.world].Name
}

// Timeline returns the Timeline of the current stage, or nil between stages.
func (s *Session) Timeline() *Timeline { return s.timeline }

// Message shows text to the player of the session.
func (s *Session) Message(text string, sound Sound) {
	s.reg.conf.Presenter.ShowMessage(s.id, text, sound)
}

// SetStage stops the current stage and starts the stage with the index
// passed. Passing the number of stages completes the tutorial.
func (s *Session) SetStage(stage int) error {
	if !s.Active() {
		return ErrSessionStopped
	}
	if stage < 0 || stage > len(s.def.Stages) {
		return fmt.Errorf("set stage %d of %d: %w", stage, len(s.def.Stages), ErrStageOutOfRange)
	}
	if s.timeline != nil {
		s.timeline.Stop()
		s.timeline = nil
	}
	s.stage.Store(int32(stage - 1))
	s.next()
	return nil
}

// SwitchWorld moves the player and the NPC to the world with the index
// passed. Switching to the current world does nothing.
func (s *Session) SwitchWorld(world int) error {
	if world == s.world {
		return nil
	}
	if world < 0 || world >= len(s.def.Worlds) {
		return fmt.Errorf("switch to world %d: %w", world, ErrWorldOutOfRange)
	}
	w := s.def.Worlds[world]
	s.npc.Remove()
	if err := s.reg.conf.Presenter.Teleport(s.id, Location{World: w.Name, Pos: w.PlayerSpawn}); err != nil {
		return fmt.Errorf("teleport to world %q: %w", w.Name, err)
	}
	s.world = world
	if err := s.npc.Spawn(Location{World: w.Name, Pos: w.NPCSpawn}); err != nil {
		s.log.Warn("Could not spawn tutorial NPC.", "world", w.Name, "error", err)
	}
	return nil
}

// Stop tears the session down: it is removed from the Registry together with
// its cooldown entry, its Timeline is stopped and its NPC removed. Stop may
// be called more than once.
func (s *Session) Stop() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.reg.remove(s)
	s.reg.cooldown.forget(s.id)
	if s.timeline != nil {
		s.timeline.Stop()
		s.timeline = nil
	}
	if s.failStop != nil {
		s.failStop.Stop()
	}
	s.npc.Remove()
	s.log.Info("Tutorial session stopped.", "stage", s.Stage())
}

// Dispatch delivers e to the current task. It reports whether a task
// received the event.
func (s *Session) Dispatch(e Event) bool {
	if !s.Active() || s.timeline == nil {
		return false
	}
	return s.timeline.Dispatch(e)
}

// interact reports whether the player is off interaction cooldown. Tasks
// call it only for events they act on, so that unrelated chat does not
// start a cooldown.
func (s *Session) interact() bool {
	return s.reg.CanInteract(s.id)
}

// next moves the session to the stage after the current one.
func (s *Session) next() {
	if !s.Active() {
		return
	}
	s.timeline = nil
	stage := int(s.stage.Add(1))
	if stage >= len(s.def.Stages) {
		s.complete()
		return
	}
	st, err := s.def.Stages[stage].New(s)
	if err != nil {
		s.fail(fmt.Errorf("create stage %d: %w", stage, err))
		return
	}
	if err := s.SwitchWorld(st.World()); err != nil {
		s.fail(fmt.Errorf("enter stage %d: %w", stage, err))
		return
	}
	tl, err := st.Timeline(s)
	if err != nil {
		s.fail(fmt.Errorf("build timeline of stage %d: %w", stage, err))
		return
	}
	tl.onComplete = s.stageComplete
	s.timeline = tl
	s.gen++
	gen := s.gen
	s.log.Info("Stage started.", "stage", stage, "name", s.def.Stages[stage].Name)

	start := func(err error) {
		if !s.Active() || s.gen != gen {
			// The session moved on while the stage was being prepared.
			return
		}
		if err != nil {
			s.fail(fmt.Errorf("prepare stage %d: %w", stage, err))
			return
		}
		if err := tl.Start(); err != nil {
			s.fail(err)
		}
	}
	if s.def.Prepare == nil {
		start(nil)
		return
	}
	s.def.Prepare(s, stage, func(err error) {
		s.reg.conf.Scheduler.Exec(func() { start(err) })
	})
}

func (s *Session) stageComplete() {
	reached := s.Stage() + 1
	if err := s.reg.conf.Progress.SaveProgress(s.id, s.tutorial, reached); err != nil {
		s.log.Error("Could not save tutorial progress.", "stage", reached, "error", err)
	}
	s.next()
}

func (s *Session) complete() {
	if !s.completed.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("Tutorial completed.")
	s.Stop()
	if s.def.OnComplete != nil {
		s.def.OnComplete(s)
	}
}

// fail logs err, tells the player and stops the session after the error
// grace period so that feedback shown to the player is not cut off.
func (s *Session) fail(err error) {
	s.log.Error("Tutorial session failed.", "error", err)
	if s.failing || !s.Active() {
		return
	}
	s.failing = true
	s.Message("An error occurred while running the tutorial. It will be stopped shortly.", SoundError)
	s.failStop = s.reg.conf.Scheduler.After(s.reg.conf.ErrorGrace, s.Stop)
}
