package beginner

import (
	"strings"
	"testing"
	"time"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/LonghiTW/Plot-System/server/tutorial/tutorialtest"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

func TestBeginnerRunThrough(t *testing.T) {
	def, err := New(DefaultLayout())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	sched := tutorialtest.NewScheduler(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	pres, npcs, store := &tutorialtest.Presenter{}, &tutorialtest.NPCs{}, &tutorialtest.Store{}
	reg := tutorial.Config{
		Log:                 tutorialtest.Logger(),
		Presenter:           pres,
		NPCs:                npcs,
		Progress:            store,
		Scheduler:           sched,
		Tutorials:           []*tutorial.Definition{def},
		InteractionCooldown: -1,
		Now:                 sched.Now,
	}.New()

	id := uuid.New()
	if !reg.Load(id, "Steve", 0, 0) {
		t.Fatalf("expected tutorial to load")
	}
	s, _ := reg.Session(id)
	dispatch := func(e tutorial.Event) {
		t.Helper()
		if !reg.Dispatch(id, e) {
			t.Fatalf("event %T not handled in stage %d", e, s.Stage())
		}
	}
	wantStage := func(stage int) {
		t.Helper()
		if got := s.Stage(); got != stage {
			t.Fatalf("stage = %d, want %d", got, stage)
		}
	}

	// Introduction.
	if s.WorldName() != "tutorial_lobby" {
		t.Fatalf("world = %q, want tutorial_lobby", s.WorldName())
	}
	dispatch(tutorial.ContinueEvent{})
	if got := npcs.Of(id).Hint(); got != tutorial.HintInteract {
		t.Fatalf("npc hint = %v, want interact", got)
	}
	dispatch(tutorial.NPCInteractEvent{})
	sched.Advance(time.Second)
	wantStage(1)
	if s.WorldName() != "tutorial_plot" {
		t.Fatalf("world = %q, want tutorial_plot", s.WorldName())
	}

	// Plot corners.
	if markers := pres.Markers(); len(markers) != 1 || markers[0].Name != "corners" {
		t.Fatalf("markers = %+v, want corners tip", markers)
	}
	for _, p := range [][2]float64{{5.5, 5.5}, {5, -4}, {-5.5, -5.5}, {-4, 6}} {
		dispatch(tutorial.TeleportEvent{Position: mgl64.Vec3{p[0], -60, p[1]}})
	}
	if len(pres.Markers()) != 0 {
		t.Fatalf("corner tip not removed")
	}
	dispatch(tutorial.ContinueEvent{})
	wantStage(2)

	// Building outline.
	for _, c := range []cube.Pos{{5, -61, 5}, {5, -61, -5}, {-5, -61, -5}, {-5, -61, 5}} {
		dispatch(tutorial.BlockInteractEvent{Pos: c, Right: true})
	}
	lines := []string{
		"5 -61 5 5 -61 -5",
		"5 -61 5 -5 -61 -5",
		"5 -61 -5 -5 -61 -5",
		"-5 -61 -5 -5 -61 5",
		"-5 -61 5 5 -61 5",
	}
	for _, line := range lines {
		dispatch(tutorial.CommandEvent{Name: "line", Args: strings.Fields(line)})
	}
	if msg, _ := pres.LastMessage(); msg.Text != "The outline of the building is complete." {
		t.Fatalf("last message = %q", msg.Text)
	}
	dispatch(tutorial.ContinueEvent{})
	wantStage(3)

	// Building height.
	dispatch(tutorial.ChatEvent{Message: "20"})
	dispatch(tutorial.ChatEvent{Message: "12.5"})
	dispatch(tutorial.ContinueEvent{})
	wantStage(4)

	// Next steps.
	dispatch(tutorial.ContinueEvent{})
	sched.Advance(2 * time.Second)

	if !s.Completed() || s.Active() {
		t.Fatalf("completed=%v active=%v, want completed and stopped", s.Completed(), s.Active())
	}
	if _, ok := reg.Session(id); ok {
		t.Fatalf("session still registered")
	}
	if got := reg.Progress(id, 0); got != 5 {
		t.Fatalf("progress = %d, want 5", got)
	}
	if msg, _ := pres.LastMessage(); !strings.HasPrefix(msg.Text, "You finished the beginner tutorial.") {
		t.Fatalf("last message = %q", msg.Text)
	}
	if _, spawned := npcs.Of(id).Spawned(); spawned {
		t.Fatalf("npc still spawned")
	}
	if sched.Pending() != 0 {
		t.Fatalf("%d timers still pending", sched.Pending())
	}
}

func TestLineCheck(t *testing.T) {
	corners := []mgl64.Vec3{{5, 0, 5}, {5, 0, -5}, {-5, 0, -5}, {-5, 0, 5}}
	check := lineCheck(corners)

	cases := []struct {
		args   string
		ok     bool
		reason string
	}{
		{"5 0 5", false, "Usage: /line <x y z> <x y z>"},
		{"~ 0 5 5 0 -5", false, "Use absolute coordinates."},
		{"five 0 5 5 0 -5", false, `"five" is not a number.`},
		{"0 0 0 5 0 -5", false, "Both ends of the line must be corners of the building."},
		{"5 0 5 -5 0 -5", false, "Only connect neighbouring corners."},
		{"5.9 -61 5.2 5 -61 -5", true, ""},
		{"5 0 -5 5 0 5", false, "You already drew that line."},
		{"-5 0 5 5 0 5", true, ""},
	}
	for _, c := range cases {
		ok, reason := check(strings.Fields(c.args))
		if ok != c.ok || reason != c.reason {
			t.Fatalf("check(%q) = %v %q, want %v %q", c.args, ok, reason, c.ok, c.reason)
		}
	}
}

func TestNewRejectsIncompleteLayout(t *testing.T) {
	l := DefaultLayout()
	l.Worlds = l.Worlds[:1]
	if _, err := New(l); err == nil {
		t.Fatalf("expected a single world to fail")
	}

	l = DefaultLayout()
	delete(l.Tips, "height")
	if _, err := New(l); err == nil {
		t.Fatalf("expected missing tip to fail")
	}

	l = DefaultLayout()
	delete(l.Answers, "height")
	if _, err := New(l); err == nil {
		t.Fatalf("expected missing answer to fail")
	}

	l = DefaultLayout()
	l.Points["corners"] = l.Points["corners"][:2]
	if _, err := New(l); err == nil {
		t.Fatalf("expected two corners to fail")
	}
}

func TestDefaultDefinition(t *testing.T) {
	def, err := New(DefaultLayout())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if def.Name != "Beginner Tutorial" || def.NPCName != "Plot Guide" {
		t.Fatalf("name=%q npc=%q", def.Name, def.NPCName)
	}
	names := def.StageNames()
	if len(names) != 5 || names[0] != "Introduction" || names[4] != "Next Steps" {
		t.Fatalf("stages = %v", names)
	}
	if l, err := LoadLayout(" "); err != nil || len(l.Worlds) != 2 {
		t.Fatalf("empty path layout = %+v, %v", l, err)
	}
}
