package tutorial

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Message appends a task that sends the lines passed as chat messages, the
// first one with sound. If waitToContinue is true, a task waiting for the
// player to continue is appended after it.
func (tl *Timeline) Message(sound Sound, waitToContinue bool, lines ...string) *Timeline {
	tl.AddTask(&messageTask{TaskState: NewTaskState("message", "", 0), lines: lines, sound: sound})
	if waitToContinue {
		tl.AddTask(&continueTask{TaskState: NewTaskState("continue", "", 0)})
	}
	return tl
}

// InteractNPC appends a task that completes once the player interacted with
// the session's NPC.
func (tl *Timeline) InteractNPC(assignment string) *Timeline {
	return tl.AddTask(&interactNPCTask{TaskState: NewTaskState("interact_npc", assignment, 1)})
}

// ChatInputFunc is called after every answer given to a chat input task.
// attemptsLeft is negative if the number of attempts is unlimited.
type ChatInputFunc func(correct bool, attemptsLeft int)

// ChatInput appends a task that waits for a numeric chat answer within offset
// of expected. The task completes on a correct answer or once attempts wrong
// answers were given. attempts of 0 or less allows unlimited answers. If
// fn is nil, the player is told whether their answer was correct.
func (tl *Timeline) ChatInput(assignment string, expected, offset float64, attempts int, fn ChatInputFunc) *Timeline {
	return tl.AddTask(&chatInputTask{
		TaskState: NewTaskState("chat_input", assignment, 0),
		expected:  expected,
		offset:    math.Abs(offset),
		attempts:  attempts,
		fn:        fn,
	})
}

// CommandCheck validates the arguments of an executed command. It returns
// false with a reason shown to the player if the execution does not count.
type CommandCheck func(args []string) (ok bool, reason string)

// Command appends a task that completes once the command with the name
// passed was executed times times with arguments accepted by check. A nil
// check accepts every execution.
func (tl *Timeline) Command(assignment, name string, times int, check CommandCheck) *Timeline {
	return tl.AddTask(&commandTask{
		TaskState: NewTaskState("command", assignment, max(times, 1)),
		name:      strings.TrimPrefix(name, "/"),
		check:     check,
	})
}

// SelectPoints appends a task that completes once the player clicked a block
// in the column of every point passed. Only the X and Z coordinates of the
// points are used.
func (tl *Timeline) SelectPoints(assignment string, points ...mgl64.Vec3) *Timeline {
	remaining := make(map[column]struct{}, len(points))
	for _, p := range points {
		remaining[columnOf(p)] = struct{}{}
	}
	return tl.AddTask(&selectPointsTask{
		TaskState: NewTaskState("select_points", assignment, len(remaining)),
		remaining: remaining,
	})
}

// TeleportPoints appends a task that completes once the player moved within
// offset blocks, on both the X and Z axis, of every point passed.
func (tl *Timeline) TeleportPoints(assignment string, offset int, points ...mgl64.Vec3) *Timeline {
	return tl.AddTask(&teleportPointsTask{
		TaskState: NewTaskState("teleport_points", assignment, len(points)),
		remaining: append([]mgl64.Vec3(nil), points...),
		offset:    max(offset, 0),
	})
}

// Delay appends a task that completes after d.
func (tl *Timeline) Delay(d time.Duration) *Timeline {
	return tl.AddTask(&delayTask{TaskState: NewTaskState("delay", "", 0), d: d})
}

// PlaceTip appends a task that places a tip marker with the id and content
// passed at pos in the world the session is in when the task runs. Tips are
// removed when the Timeline ends.
func (tl *Timeline) PlaceTip(id string, pos mgl64.Vec3, content string) *Timeline {
	tl.tips = append(tl.tips, id)
	return tl.AddTask(&placeTipTask{TaskState: NewTaskState("place_tip", "", 0), id: id, pos: pos, content: content})
}

// RemoveTip appends a task that removes the tip marker with the id passed.
func (tl *Timeline) RemoveTip(id string) *Timeline {
	return tl.AddTask(&removeTipTask{TaskState: NewTaskState("remove_tip", "", 0), id: id})
}

// RemoveTips appends a task removing every tip placed by a PlaceTip task
// added before it.
func (tl *Timeline) RemoveTips() *Timeline {
	for _, id := range tl.tips {
		tl.RemoveTip(id)
	}
	tl.tips = nil
	return tl
}

// Teleport appends a task that moves the session to the world with the index
// passed. Teleport failures are logged and do not stop the Timeline.
func (tl *Timeline) Teleport(world int) *Timeline {
	return tl.AddTask(&teleportTask{TaskState: NewTaskState("teleport", "", 0), world: world})
}

type messageTask struct {
	TaskState
	lines []string
	sound Sound
}

func (t *messageTask) Perform(tl *Timeline) {
	for i, line := range t.lines {
		sound := SoundNone
		if i == 0 {
			sound = t.sound
		}
		tl.s.Message(line, sound)
	}
	t.SetDone()
}

type continueTask struct {
	TaskState
}

func (t *continueTask) Hint() Hint        { return HintContinue }
func (t *continueTask) Perform(*Timeline) {}

func (t *continueTask) HandleEvent(tl *Timeline, e Event) {
	switch e.(type) {
	case ContinueEvent, NPCInteractEvent:
		if tl.s.interact() {
			t.SetDone()
		}
	}
}

type interactNPCTask struct {
	TaskState
}

func (t *interactNPCTask) Hint() Hint        { return HintInteract }
func (t *interactNPCTask) Perform(*Timeline) {}

func (t *interactNPCTask) HandleEvent(tl *Timeline, e Event) {
	if _, ok := e.(NPCInteractEvent); ok && tl.s.interact() {
		t.AddProgress()
		t.SetDone()
	}
}

type chatInputTask struct {
	TaskState
	expected, offset float64
	attempts         int
	fn               ChatInputFunc
}

func (t *chatInputTask) Perform(*Timeline) {}

func (t *chatInputTask) HandleEvent(tl *Timeline, e Event) {
	chat, ok := e.(ChatEvent)
	if !ok || !tl.s.interact() {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(chat.Message), 64)
	correct := err == nil && math.Abs(v-t.expected) <= t.offset

	left := -1
	if t.attempts > 0 {
		if !correct {
			t.attempts--
		}
		left = t.attempts
	}
	t.feedback(tl, correct, left)
	if correct || left == 0 {
		t.SetDone()
	}
}

func (t *chatInputTask) feedback(tl *Timeline, correct bool, left int) {
	if t.fn != nil {
		t.fn(correct, left)
		return
	}
	switch {
	case correct:
		tl.s.Message("Correct!", SoundDone)
	case left == 0:
		tl.s.Message(fmt.Sprintf("Wrong answer. The correct answer was %v.", t.expected), SoundError)
	case left > 0:
		tl.s.Message(fmt.Sprintf("Wrong answer, %d attempt(s) left.", left), SoundError)
	default:
		tl.s.Message("Wrong answer, try again.", SoundError)
	}
}

type commandTask struct {
	TaskState
	name  string
	check CommandCheck
}

func (t *commandTask) Perform(*Timeline) {}

func (t *commandTask) HandleEvent(tl *Timeline, e Event) {
	c, ok := e.(CommandEvent)
	if !ok || !strings.EqualFold(strings.TrimPrefix(c.Name, "/"), t.name) {
		return
	}
	if t.check != nil {
		if ok, reason := t.check(c.Args); !ok {
			if reason != "" {
				tl.s.Message(reason, SoundError)
			}
			return
		}
	}
	t.AddProgress()
	if t.progress >= t.total {
		t.SetDone()
	}
}

// column is a block column, identified by its X and Z coordinates.
type column struct{ x, z int }

func columnOf(v mgl64.Vec3) column {
	return column{x: int(math.Floor(v[0])), z: int(math.Floor(v[2]))}
}

type selectPointsTask struct {
	TaskState
	remaining map[column]struct{}
}

func (t *selectPointsTask) Perform(*Timeline) {
	if len(t.remaining) == 0 {
		t.SetDone()
	}
}

func (t *selectPointsTask) HandleEvent(_ *Timeline, e Event) {
	b, ok := e.(BlockInteractEvent)
	if !ok {
		return
	}
	c := column{x: b.Pos.X(), z: b.Pos.Z()}
	if _, ok := t.remaining[c]; !ok {
		return
	}
	delete(t.remaining, c)
	t.AddProgress()
	if len(t.remaining) == 0 {
		t.SetDone()
	}
}

type teleportPointsTask struct {
	TaskState
	remaining []mgl64.Vec3
	offset    int
}

func (t *teleportPointsTask) Perform(*Timeline) {
	if len(t.remaining) == 0 {
		t.SetDone()
	}
}

func (t *teleportPointsTask) HandleEvent(_ *Timeline, e Event) {
	tp, ok := e.(TeleportEvent)
	if !ok {
		return
	}
	at := columnOf(tp.Position)
	for i, p := range t.remaining {
		c := columnOf(p)
		if abs(at.x-c.x) <= t.offset && abs(at.z-c.z) <= t.offset {
			t.remaining = append(t.remaining[:i], t.remaining[i+1:]...)
			t.AddProgress()
			break
		}
	}
	if len(t.remaining) == 0 {
		t.SetDone()
	}
}

type delayTask struct {
	TaskState
	d time.Duration
}

func (t *delayTask) Perform(tl *Timeline) {
	timer := tl.s.reg.conf.Scheduler.After(t.d, t.SetDone)
	t.OnDone(timer.Stop)
}

type placeTipTask struct {
	TaskState
	id      string
	pos     mgl64.Vec3
	content string
}

func (t *placeTipTask) Perform(tl *Timeline) {
	tl.placeMarker(t.id, Location{World: tl.s.WorldName(), Pos: t.pos}, t.content)
	t.SetDone()
}

type removeTipTask struct {
	TaskState
	id string
}

func (t *removeTipTask) Perform(tl *Timeline) {
	tl.removeMarker(t.id)
	t.SetDone()
}

type teleportTask struct {
	TaskState
	world int
}

func (t *teleportTask) Perform(tl *Timeline) {
	if err := tl.s.SwitchWorld(t.world); err != nil {
		tl.log.Warn("Could not teleport player.", "world", t.world, "error", err)
	}
	t.SetDone()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
