package tutorial

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds the collaborators and settings of a Registry.
type Config struct {
	// Log is the Logger used by the Registry and its sessions. If nil,
	// slog.Default() is used.
	Log *slog.Logger
	// Presenter shows tutorial output to players. If nil, output is
	// discarded.
	Presenter Presenter
	// NPCs creates the NPC of every session. If nil, sessions have no
	// visible NPC.
	NPCs NPCProvider
	// Progress persists the highest stage players reached. If nil, progress
	// is not stored.
	Progress ProgressStore
	// Scheduler runs all session work. If nil, a Loop is started that is
	// closed by Registry.Shutdown.
	Scheduler Scheduler
	// Tutorials are the tutorials players may start, indexed by position.
	Tutorials []*Definition
	// InteractionCooldown is the minimum time between two accepted chat or
	// NPC interactions of a player. It defaults to one second. A negative
	// value disables the cooldown.
	InteractionCooldown time.Duration
	// ErrorGrace is how long a failed session stays up so that the player can
	// read the error. It defaults to three seconds.
	ErrorGrace time.Duration
	// ProgressInterval is how often the progress of the current task is
	// shown again. It defaults to one second.
	ProgressInterval time.Duration
	// Now returns the current time. It defaults to time.Now.
	Now func() time.Time
}

// New creates a Registry using the fields of conf, filling in defaults where
// needed.
func (conf Config) New() *Registry {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	conf.Log = conf.Log.With("subsystem", "tutorial")
	if conf.Presenter == nil {
		conf.Presenter = NopPresenter{}
	}
	if conf.NPCs == nil {
		conf.NPCs = NopNPCs{}
	}
	if conf.Progress == nil {
		conf.Progress = NopProgressStore{}
	}
	var owned *Loop
	if conf.Scheduler == nil {
		owned = NewLoop(conf.Log)
		conf.Scheduler = owned
	}
	if conf.InteractionCooldown == 0 {
		conf.InteractionCooldown = time.Second
	}
	if conf.ErrorGrace <= 0 {
		conf.ErrorGrace = 3 * time.Second
	}
	if conf.ProgressInterval <= 0 {
		conf.ProgressInterval = time.Second
	}
	if conf.Now == nil {
		conf.Now = time.Now
	}
	conf.Tutorials = slices.Clone(conf.Tutorials)
	return &Registry{
		conf:     conf,
		log:      conf.Log,
		owned:    owned,
		cooldown: newCooldown(conf.InteractionCooldown, conf.Now),
	}
}

// Registry is the directory of tutorials and of the sessions currently
// running. At most one session exists per player.
//
// Lookups may be made from any goroutine. Load, Stop and Shutdown change
// sessions and must run on the Scheduler.
type Registry struct {
	conf     Config
	log      *slog.Logger
	owned    *Loop
	cooldown *cooldown

	mu       sync.RWMutex
	sessions []*Session
}

// TutorialInfo summarises a registered tutorial.
type TutorialInfo struct {
	ID     int
	Name   string
	Stages []string
}

// Scheduler returns the Scheduler sessions run on.
func (r *Registry) Scheduler() Scheduler { return r.conf.Scheduler }

// Presenter returns the Presenter used to show tutorial output.
func (r *Registry) Presenter() Presenter { return r.conf.Presenter }

// Tutorials returns a summary of every registered tutorial.
func (r *Registry) Tutorials() []TutorialInfo {
	infos := make([]TutorialInfo, len(r.conf.Tutorials))
	for i, def := range r.conf.Tutorials {
		infos[i] = TutorialInfo{ID: i, Name: def.Name, Stages: def.StageNames()}
	}
	return infos
}

// Tutorial returns the tutorial with the index passed.
func (r *Registry) Tutorial(id int) (*Definition, bool) {
	if id < 0 || id >= len(r.conf.Tutorials) {
		return nil, false
	}
	return r.conf.Tutorials[id], true
}

// Load starts tutorial for the player passed, at stage, or at the first stage
// if stage is negative. It returns false without creating a session if the
// tutorial or stage does not exist or the player already has a session.
func (r *Registry) Load(player uuid.UUID, name string, tutorial, stage int) bool {
	def, ok := r.Tutorial(tutorial)
	if !ok || len(def.Stages) == 0 || len(def.Worlds) == 0 || stage >= len(def.Stages) {
		return false
	}
	stage = max(stage, 0)

	r.mu.Lock()
	if slices.ContainsFunc(r.sessions, func(s *Session) bool { return s.id == player }) {
		r.mu.Unlock()
		return false
	}
	s := newSession(r, player, name, tutorial)
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()

	s.log.Info("Tutorial started.", "stage", stage)
	if err := s.SetStage(stage); err != nil {
		s.fail(err)
	}
	return true
}

// Session returns the session of the player passed.
func (r *Registry) Session(player uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.id == player {
			return s, true
		}
	}
	return nil, false
}

// Sessions returns every running session in the order they were started.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sessions)
}

// CanInteract reports whether the player may interact now. An accepted
// interaction starts a new cooldown window for the player.
func (r *Registry) CanInteract(player uuid.UUID) bool {
	return r.cooldown.allow(player)
}

// Dispatch delivers e to the session of the player passed. It reports whether
// a task received the event.
func (r *Registry) Dispatch(player uuid.UUID, e Event) bool {
	s, ok := r.Session(player)
	if !ok {
		return false
	}
	return s.Dispatch(e)
}

// Stop stops the session of the player passed, if any.
func (r *Registry) Stop(player uuid.UUID) bool {
	s, ok := r.Session(player)
	if ok {
		s.Stop()
	}
	return ok
}

// Progress returns the highest stage the player reached in tutorial. Storage
// errors are logged and reported as no progress.
func (r *Registry) Progress(player uuid.UUID, tutorial int) int {
	stage, err := r.conf.Progress.LoadProgress(player, tutorial)
	if err != nil {
		r.log.Error("Could not load tutorial progress.", "player", player, "tutorial", tutorial, "error", err)
		return 0
	}
	return stage
}

// Shutdown stops every session, most recently started first. If the Registry
// started its own Loop, the Loop is closed once the work queued so far has
// run.
func (r *Registry) Shutdown() {
	sessions := r.Sessions()
	for i := len(sessions) - 1; i >= 0; i-- {
		sessions[i].Stop()
	}
	if r.owned != nil {
		go r.owned.Close()
	}
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = slices.DeleteFunc(r.sessions, func(other *Session) bool { return other == s })
}
