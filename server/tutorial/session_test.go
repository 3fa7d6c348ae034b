package tutorial_test

import (
	"errors"
	"testing"
	"time"

	"github.com/LonghiTW/Plot-System/server/tutorial"
	"github.com/LonghiTW/Plot-System/server/tutorial/tutorialtest"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// pastCooldown is just over the default interaction cooldown.
const pastCooldown = time.Second + time.Millisecond

type harness struct {
	sched *tutorialtest.Scheduler
	pres  *tutorialtest.Presenter
	npcs  *tutorialtest.NPCs
	store *tutorialtest.Store
	reg   *tutorial.Registry
}

func newHarness(t *testing.T, defs ...*tutorial.Definition) *harness {
	t.Helper()
	h := &harness{
		sched: tutorialtest.NewScheduler(epoch),
		pres:  &tutorialtest.Presenter{},
		npcs:  &tutorialtest.NPCs{},
		store: &tutorialtest.Store{},
	}
	h.reg = tutorial.Config{
		Log:       tutorialtest.Logger(),
		Presenter: h.pres,
		NPCs:      h.npcs,
		Progress:  h.store,
		Scheduler: h.sched,
		Tutorials: defs,
		Now:       h.sched.Now,
	}.New()
	return h
}

// waiter is a task that waits until the test marks it done.
type waiter struct {
	tutorial.TaskState
	performed int
}

func newWaiter() *waiter {
	return &waiter{TaskState: tutorial.NewTaskState("waiter", "", 0)}
}

func (p *waiter) Perform(*tutorial.Timeline) { p.performed++ }

var testWorlds = []tutorial.World{
	{Name: "lobby", PlayerSpawn: mgl64.Vec3{0, 64, 0}, NPCSpawn: mgl64.Vec3{2, 64, 0}},
	{Name: "plot", PlayerSpawn: mgl64.Vec3{100, 70, 100}, NPCSpawn: mgl64.Vec3{102, 70, 100}},
}

// waiterTutorial returns a tutorial whose stage i consists of the waiter
// waiters[i] and takes place in world i%2.
func waiterTutorial(waiters ...*waiter) *tutorial.Definition {
	def := &tutorial.Definition{Name: "waiters", NPCName: "Guide", Worlds: testWorlds}
	for i, p := range waiters {
		p := p
		def.Stages = append(def.Stages, tutorial.StageDef{
			Name: "stage",
			New: tutorial.NewStage(i%2, func(_ *tutorial.Session, tl *tutorial.Timeline) error {
				tl.AddTask(p)
				return nil
			}),
		})
	}
	return def
}

func TestLoadStartsFirstTaskOnce(t *testing.T) {
	p := newWaiter()
	h := newHarness(t, waiterTutorial(p, newWaiter()))
	id := uuid.New()

	if !h.reg.Load(id, "Steve", 0, -1) {
		t.Fatalf("expected tutorial to load")
	}
	s, ok := h.reg.Session(id)
	if !ok {
		t.Fatalf("expected session to be registered")
	}
	if got := s.Stage(); got != 0 {
		t.Fatalf("stage = %d, want 0", got)
	}
	if got := s.Timeline().State(); got != tutorial.TimelineRunning {
		t.Fatalf("timeline state = %v, want running", got)
	}
	if p.performed != 1 {
		t.Fatalf("first task performed %d times, want 1", p.performed)
	}
	if got := s.World(); got != 0 {
		t.Fatalf("world = %d, want 0", got)
	}
	if loc, spawned := h.npcs.Of(id).Spawned(); !spawned || loc.World != "lobby" {
		t.Fatalf("npc spawned=%v in %q, want spawned in lobby", spawned, loc.World)
	}
}

func TestLoadRejections(t *testing.T) {
	h := newHarness(t, waiterTutorial(newWaiter(), newWaiter()))
	id := uuid.New()

	cases := []struct {
		name            string
		tutorial, stage int
	}{
		{"negative tutorial", -1, 0},
		{"unknown tutorial", 1, 0},
		{"stage past end", 0, 2},
	}
	for _, c := range cases {
		if h.reg.Load(id, "Steve", c.tutorial, c.stage) {
			t.Fatalf("%s: expected load to fail", c.name)
		}
	}
	if len(h.reg.Sessions()) != 0 {
		t.Fatalf("expected no sessions after rejected loads")
	}

	if !h.reg.Load(id, "Steve", 0, 1) {
		t.Fatalf("expected load at stage 1 to succeed")
	}
	if h.reg.Load(id, "Steve", 0, 0) {
		t.Fatalf("expected second load for the same player to fail")
	}
	if got := len(h.reg.Sessions()); got != 1 {
		t.Fatalf("sessions = %d, want 1", got)
	}
	s, _ := h.reg.Session(id)
	if got := s.Stage(); got != 1 {
		t.Fatalf("stage = %d, want 1", got)
	}
}

func TestCompletionFiresOnce(t *testing.T) {
	first, last := newWaiter(), newWaiter()
	def := waiterTutorial(first, last)
	completions := 0
	def.OnComplete = func(*tutorial.Session) { completions++ }
	h := newHarness(t, def)
	id := uuid.New()
	h.reg.Load(id, "Alex", 0, -1)
	s, _ := h.reg.Session(id)

	first.SetDone()
	if got := s.Stage(); got != 1 {
		t.Fatalf("stage after first stage = %d, want 1", got)
	}
	if got := s.World(); got != 1 {
		t.Fatalf("world after first stage = %d, want 1", got)
	}
	last.SetDone()
	last.SetDone()

	if completions != 1 {
		t.Fatalf("completions = %d, want 1", completions)
	}
	if !s.Completed() || s.Active() {
		t.Fatalf("completed=%v active=%v, want completed and inactive", s.Completed(), s.Active())
	}
	if got := s.Stage(); got != 2 {
		t.Fatalf("stage after completion = %d, want 2", got)
	}
	if _, ok := h.reg.Session(id); ok {
		t.Fatalf("expected session to be removed from the registry")
	}
	if got := h.reg.Progress(id, 0); got != 2 {
		t.Fatalf("stored progress = %d, want 2", got)
	}
}

func TestStageJumpStopsCurrentTimeline(t *testing.T) {
	waiters := []*waiter{newWaiter(), newWaiter(), newWaiter()}
	h := newHarness(t, waiterTutorial(waiters...))
	id := uuid.New()
	h.reg.Load(id, "Alex", 0, -1)
	s, _ := h.reg.Session(id)
	old := s.Timeline()

	if err := s.SetStage(2); err != nil {
		t.Fatalf("set stage: %v", err)
	}
	if old.State() != tutorial.TimelineStopped {
		t.Fatalf("old timeline state = %v, want stopped", old.State())
	}
	if !waiters[0].Done() {
		t.Fatalf("expected the task of the old timeline to be forced done")
	}
	if waiters[1].performed != 0 {
		t.Fatalf("skipped stage performed its task")
	}
	if waiters[2].performed != 1 {
		t.Fatalf("stage 2 task performed %d times, want 1", waiters[2].performed)
	}
	if got := s.Stage(); got != 2 {
		t.Fatalf("stage = %d, want 2", got)
	}

	waiters[0].SetDone()
	if got := s.Stage(); got != 2 {
		t.Fatalf("stale completion moved stage to %d", got)
	}

	if err := s.SetStage(4); !errors.Is(err, tutorial.ErrStageOutOfRange) {
		t.Fatalf("SetStage(4) error = %v, want ErrStageOutOfRange", err)
	}
	if err := s.SetStage(-1); !errors.Is(err, tutorial.ErrStageOutOfRange) {
		t.Fatalf("SetStage(-1) error = %v, want ErrStageOutOfRange", err)
	}
}

func TestJumpToStageCountCompletes(t *testing.T) {
	h := newHarness(t, waiterTutorial(newWaiter(), newWaiter()))
	id := uuid.New()
	h.reg.Load(id, "Alex", 0, -1)
	s, _ := h.reg.Session(id)

	if err := s.SetStage(2); err != nil {
		t.Fatalf("set stage: %v", err)
	}
	if !s.Completed() {
		t.Fatalf("expected session to complete")
	}
	if err := s.SetStage(0); !errors.Is(err, tutorial.ErrSessionStopped) {
		t.Fatalf("SetStage on stopped session error = %v, want ErrSessionStopped", err)
	}
}

func TestStopTearsEverythingDown(t *testing.T) {
	p := newWaiter()
	h := newHarness(t, waiterTutorial(p))
	id := uuid.New()
	h.reg.Load(id, "Alex", 0, -1)
	s, _ := h.reg.Session(id)
	tl := s.Timeline()

	if !h.reg.Stop(id) {
		t.Fatalf("expected Stop to find the session")
	}
	s.Stop()

	if s.Timeline() != nil {
		t.Fatalf("expected no timeline after stop")
	}
	if tl.State() != tutorial.TimelineStopped || tl.Len() != 0 {
		t.Fatalf("timeline state=%v len=%d, want stopped and empty", tl.State(), tl.Len())
	}
	if _, spawned := h.npcs.Of(id).Spawned(); spawned {
		t.Fatalf("expected NPC to be removed")
	}
	if _, ok := h.reg.Session(id); ok {
		t.Fatalf("expected session to be removed")
	}
	if s.Completed() {
		t.Fatalf("stopped session must not count as completed")
	}
	if h.reg.Stop(id) {
		t.Fatalf("Stop reported a session that no longer exists")
	}
}

func TestCanInteractCooldown(t *testing.T) {
	h := newHarness(t)
	id := uuid.New()

	if !h.reg.CanInteract(id) {
		t.Fatalf("first interaction must be allowed")
	}
	h.sched.Advance(500 * time.Millisecond)
	if h.reg.CanInteract(id) {
		t.Fatalf("interaction within the cooldown must be refused")
	}
	h.sched.Advance(500 * time.Millisecond)
	if h.reg.CanInteract(id) {
		t.Fatalf("interaction exactly one cooldown later must be refused")
	}
	h.sched.Advance(time.Millisecond)
	if !h.reg.CanInteract(id) {
		t.Fatalf("interaction after the cooldown must be allowed")
	}
	if !h.reg.CanInteract(uuid.New()) {
		t.Fatalf("cooldown must be tracked per player")
	}
}

func TestPrepareHookDelaysStart(t *testing.T) {
	first, second := newWaiter(), newWaiter()
	def := waiterTutorial(first, second)
	var pending []func(error)
	def.Prepare = func(_ *tutorial.Session, _ int, done func(error)) {
		pending = append(pending, done)
	}
	h := newHarness(t, def)
	id := uuid.New()
	h.reg.Load(id, "Alex", 0, -1)
	s, _ := h.reg.Session(id)

	if first.performed != 0 {
		t.Fatalf("task performed before stage was prepared")
	}
	if got := s.Timeline().State(); got != tutorial.TimelineNotStarted {
		t.Fatalf("timeline state = %v, want not started", got)
	}

	// Jump before the first stage finished preparing: its done must be
	// ignored.
	if err := s.SetStage(1); err != nil {
		t.Fatalf("set stage: %v", err)
	}
	pending[0](nil)
	if first.performed != 0 {
		t.Fatalf("stale prepare started an abandoned stage")
	}
	pending[1](nil)
	if second.performed != 1 {
		t.Fatalf("second stage performed %d times, want 1", second.performed)
	}
}

func TestPrepareErrorStopsAfterGrace(t *testing.T) {
	def := waiterTutorial(newWaiter())
	def.Prepare = func(_ *tutorial.Session, _ int, done func(error)) {
		done(errors.New("plot generation failed"))
	}
	h := newHarness(t, def)
	id := uuid.New()
	h.reg.Load(id, "Alex", 0, -1)
	s, _ := h.reg.Session(id)

	if msg, _ := h.pres.LastMessage(); msg.Sound != tutorial.SoundError {
		t.Fatalf("expected an error message, got %+v", msg)
	}
	if !s.Active() {
		t.Fatalf("session stopped before the grace period")
	}
	h.sched.Advance(2 * time.Second)
	if !s.Active() {
		t.Fatalf("session stopped before the grace period")
	}
	h.sched.Advance(time.Second)
	if s.Active() {
		t.Fatalf("session still active after the grace period")
	}
}

func TestStageFactoryErrorIsFatal(t *testing.T) {
	def := &tutorial.Definition{
		Name:   "broken",
		Worlds: testWorlds,
		Stages: []tutorial.StageDef{{
			Name: "broken",
			New: func(*tutorial.Session) (tutorial.Stage, error) {
				return nil, errors.New("missing schematic")
			},
		}},
	}
	h := newHarness(t, def)
	id := uuid.New()
	if !h.reg.Load(id, "Alex", 0, -1) {
		t.Fatalf("expected load to succeed")
	}
	h.sched.Advance(3 * time.Second)
	if _, ok := h.reg.Session(id); ok {
		t.Fatalf("expected failed session to be stopped")
	}
}

func TestStorageFailureIsNotFatal(t *testing.T) {
	first, second := newWaiter(), newWaiter()
	h := newHarness(t, waiterTutorial(first, second))
	h.store.Fail = true
	id := uuid.New()
	h.reg.Load(id, "Alex", 0, -1)
	s, _ := h.reg.Session(id)

	first.SetDone()
	if got := s.Stage(); got != 1 {
		t.Fatalf("stage = %d, want 1", got)
	}
	if !s.Active() {
		t.Fatalf("storage failure stopped the session")
	}
	if got := h.reg.Progress(id, 0); got != 0 {
		t.Fatalf("progress = %d, want 0 on storage failure", got)
	}
}

func TestSwitchWorld(t *testing.T) {
	h := newHarness(t, waiterTutorial(newWaiter()))
	id := uuid.New()
	h.reg.Load(id, "Alex", 0, -1)
	s, _ := h.reg.Session(id)
	npc := h.npcs.Of(id)

	if err := s.SwitchWorld(0); err != nil {
		t.Fatalf("switch to current world: %v", err)
	}
	if got := len(h.pres.Teleports()); got != 1 {
		t.Fatalf("teleports = %d, want 1", got)
	}
	if err := s.SwitchWorld(1); err != nil {
		t.Fatalf("switch world: %v", err)
	}
	tps := h.pres.Teleports()
	if got := tps[len(tps)-1]; got.World != "plot" || got.Pos != testWorlds[1].PlayerSpawn {
		t.Fatalf("teleported to %+v, want plot spawn", got)
	}
	if loc, _ := npc.Spawned(); loc.World != "plot" || loc.Pos != testWorlds[1].NPCSpawn {
		t.Fatalf("npc at %+v, want plot npc spawn", loc)
	}
	if npc.Spawns() != 2 {
		t.Fatalf("npc spawns = %d, want 2", npc.Spawns())
	}
	if err := s.SwitchWorld(5); !errors.Is(err, tutorial.ErrWorldOutOfRange) {
		t.Fatalf("SwitchWorld(5) error = %v, want ErrWorldOutOfRange", err)
	}

	h.pres.TeleportErr = errors.New("world not loaded")
	if err := s.SwitchWorld(0); err == nil {
		t.Fatalf("expected teleport failure to be returned")
	}
	if got := s.World(); got != 1 {
		t.Fatalf("world = %d after failed switch, want 1", got)
	}
}

func TestShutdownStopsAllSessions(t *testing.T) {
	h := newHarness(t, waiterTutorial(newWaiter()))
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		h.reg.Load(id, "player", 0, -1)
	}
	h.reg.Shutdown()
	if got := len(h.reg.Sessions()); got != 0 {
		t.Fatalf("sessions after shutdown = %d, want 0", got)
	}
	for _, id := range ids {
		if _, spawned := h.npcs.Of(id).Spawned(); spawned {
			t.Fatalf("npc of %v still spawned", id)
		}
	}
}

func TestTutorials(t *testing.T) {
	h := newHarness(t, waiterTutorial(newWaiter(), newWaiter()))
	infos := h.reg.Tutorials()
	if len(infos) != 1 || infos[0].Name != "waiters" || len(infos[0].Stages) != 2 {
		t.Fatalf("unexpected tutorials %+v", infos)
	}
}
