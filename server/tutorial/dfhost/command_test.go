package dfhost

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/LonghiTW/Plot-System/server/tutorial/tutorialtest"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"
)

type noPlayers struct{}

func (noPlayers) Player(uuid.UUID) (*world.EntityHandle, bool) { return nil, false }

// newTestHost returns a Host whose Registry runs defs on in-memory
// collaborators. No player is online.
func newTestHost(defs ...*tutorial.Definition) (*Host, *tutorialtest.Presenter, *tutorialtest.Store) {
	pres, store := &tutorialtest.Presenter{}, &tutorialtest.Store{}
	sched := tutorialtest.NewScheduler(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	h := Config{Log: tutorialtest.Logger(), Players: noPlayers{}}.New()
	h.reg = tutorial.Config{
		Log:       tutorialtest.Logger(),
		Presenter: pres,
		NPCs:      &tutorialtest.NPCs{},
		Progress:  store,
		Scheduler: sched,
		Tutorials: defs,
		Now:       sched.Now,
	}.New()
	return h, pres, store
}

// waitingTutorial returns a tutorial whose stages wait for the guide.
func waitingTutorial(name string, stages int) *tutorial.Definition {
	def := &tutorial.Definition{Name: name, Worlds: []tutorial.World{{Name: "lobby"}}}
	for i := range stages {
		def.Stages = append(def.Stages, tutorial.StageDef{
			Name: fmt.Sprintf("Stage %d", i+1),
			New: tutorial.NewStage(0, func(_ *tutorial.Session, tl *tutorial.Timeline) error {
				tl.InteractNPC("Talk to the guide.")
				return nil
			}),
		})
	}
	return def
}

func TestBegin(t *testing.T) {
	cases := []struct {
		name       string
		progress   int
		playing    int
		tut, stage int
		wantErr    error
		wantTut    int
		wantStage  int
	}{
		{name: "resume after last completed stage", progress: 2, playing: -1, tut: 0, stage: -1, wantTut: 0, wantStage: 2},
		{name: "replay finished tutorial", progress: 3, playing: -1, tut: 0, stage: -1, wantTut: 0, wantStage: 0},
		{name: "refuse stage not reached", progress: 1, playing: -1, tut: 0, stage: 2, wantErr: errStageLocked},
		{name: "jump within tutorial", progress: 2, playing: 0, tut: 0, stage: 1, wantTut: 0, wantStage: 1},
		{name: "switch tutorial", progress: 2, playing: 0, tut: 1, stage: -1, wantTut: 1, wantStage: 0},
		{name: "unknown tutorial", playing: -1, tut: 5, stage: -1, wantErr: errUnknownTutorial},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, _, store := newTestHost(waitingTutorial("Beginner", 3), waitingTutorial("Advanced", 2))
			id := uuid.New()
			if c.progress > 0 {
				_ = store.SaveProgress(id, 0, c.progress)
			}
			var before *tutorial.Session
			if c.playing >= 0 {
				if !h.reg.Load(id, "Steve", c.playing, 0) {
					t.Fatalf("expected tutorial %d to load", c.playing)
				}
				before, _ = h.reg.Session(id)
			}

			err := h.begin(id, "Steve", c.tut, c.stage)
			if c.wantErr != nil {
				if !errors.Is(err, c.wantErr) {
					t.Fatalf("begin error = %v, want %v", err, c.wantErr)
				}
				if s, ok := h.reg.Session(id); ok && s != before {
					t.Fatalf("refused start created a session")
				}
				return
			}
			if err != nil {
				t.Fatalf("begin: %v", err)
			}
			s, ok := h.reg.Session(id)
			if !ok {
				t.Fatalf("no session after begin")
			}
			if s.Tutorial() != c.wantTut || s.Stage() != c.wantStage {
				t.Fatalf("session at tutorial %d stage %d, want tutorial %d stage %d", s.Tutorial(), s.Stage(), c.wantTut, c.wantStage)
			}
			if before == nil {
				return
			}
			if c.tut == c.playing && s != before {
				t.Fatalf("jump within a tutorial replaced the session")
			}
			if c.tut != c.playing && before.Active() {
				t.Fatalf("session of the previous tutorial still active")
			}
		})
	}
}

func TestStartTellsPlayerAboutLockedStage(t *testing.T) {
	h, pres, _ := newTestHost(waitingTutorial("Beginner", 3))
	id := uuid.New()
	h.start(id, "Steve", 0, 1)

	msg, ok := pres.LastMessage()
	if !ok || msg.Player != id || msg.Text != "Complete the previous stages first." || msg.Sound != tutorial.SoundError {
		t.Fatalf("last message = %+v, want locked stage message", msg)
	}
	if _, ok := h.reg.Session(id); ok {
		t.Fatalf("locked stage started a session")
	}
}

func TestMenuFollowsSession(t *testing.T) {
	h, _, _ := newTestHost(waitingTutorial("Beginner", 3), waitingTutorial("Advanced", 2))
	id := uuid.New()
	if got := h.menu(id).Title(); got != "Tutorials" {
		t.Fatalf("menu outside a tutorial = %q, want Tutorials", got)
	}
	if !h.reg.Load(id, "Steve", 1, 0) {
		t.Fatalf("expected tutorial to load")
	}
	m := h.menu(id)
	if m.Title() != "Advanced" || len(m.Buttons()) != 2 {
		t.Fatalf("menu in a tutorial = %q with %d buttons, want Advanced stages", m.Title(), len(m.Buttons()))
	}
}

func TestQuitForgetsGuide(t *testing.T) {
	h, _, _ := newTestHost(waitingTutorial("Beginner", 1))
	id := uuid.New()
	h.NewNPC(id, "Guide")
	if _, ok := h.npcs.of(id); !ok {
		t.Fatalf("guide not tracked")
	}
	(&Handler{h: h, id: id}).HandleQuit(nil)
	if _, ok := h.npcs.of(id); ok {
		t.Fatalf("guide of a player who left is still tracked")
	}
}
