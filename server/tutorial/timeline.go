package tutorial

import (
	"fmt"
	"log/slog"
)

// TimelineState is the lifecycle state of a Timeline.
type TimelineState int

const (
	TimelineNotStarted TimelineState = iota
	TimelineRunning
	TimelineCompleted
	TimelineStopped
)

func (s TimelineState) String() string {
	switch s {
	case TimelineNotStarted:
		return "not started"
	case TimelineRunning:
		return "running"
	case TimelineCompleted:
		return "completed"
	case TimelineStopped:
		return "stopped"
	}
	return fmt.Sprintf("TimelineState(%d)", int(s))
}

// Timeline is the ordered list of tasks of one stage, run one at a time for
// the player of its Session. Tasks are added with the builder methods before
// Start is called. A Timeline that completed or was stopped cannot be
// started again.
//
// All methods must be called on the scheduling goroutine.
type Timeline struct {
	s   *Session
	log *slog.Logger

	state   TimelineState
	tasks   []Task
	current int
	poll    Timer

	tips       []string
	markers    map[string]Marker
	markerList []string

	onComplete func()
}

// NewTimeline returns an empty Timeline for the session passed.
func (s *Session) NewTimeline() *Timeline {
	return &Timeline{s: s, log: s.log, current: -1, markers: make(map[string]Marker)}
}

// Session returns the session the Timeline belongs to.
func (tl *Timeline) Session() *Session { return tl.s }

// State returns the lifecycle state of the Timeline.
func (tl *Timeline) State() TimelineState { return tl.state }

// Len returns the number of tasks. It is 0 after the Timeline completed or
// was stopped.
func (tl *Timeline) Len() int { return len(tl.tasks) }

// Current returns the index of the current task, or -1 before Start.
func (tl *Timeline) Current() int { return tl.current }

// CurrentTask returns the current task, or nil if the Timeline is not
// running.
func (tl *Timeline) CurrentTask() Task {
	if tl.state != TimelineRunning || tl.current < 0 {
		return nil
	}
	return tl.tasks[tl.current]
}

// AddTask appends t to the Timeline. Tasks added after Start are ignored.
func (tl *Timeline) AddTask(t Task) *Timeline {
	if tl.state != TimelineNotStarted {
		tl.log.Error("Task added to a timeline that already started.", "task", t.State().kind)
		return tl
	}
	t.State().tl = tl
	tl.tasks = append(tl.tasks, t)
	return tl
}

// Start runs the first task. It fails with ErrTimelineStarted unless the
// Timeline has not been started before. A Timeline without tasks completes
// immediately.
func (tl *Timeline) Start() error {
	if tl.state != TimelineNotStarted {
		return fmt.Errorf("start timeline (%v): %w", tl.state, ErrTimelineStarted)
	}
	tl.state = TimelineRunning
	if len(tl.tasks) == 0 {
		tl.complete()
		return nil
	}
	tl.next()
	return nil
}

// Stop aborts the Timeline: pending timers are cancelled, the current task is
// forced done without the Timeline advancing, every tip marker is removed and
// the task list is cleared. Stopping a Timeline that already completed or
// was stopped has no effect.
func (tl *Timeline) Stop() {
	if tl.state == TimelineCompleted || tl.state == TimelineStopped {
		return
	}
	wasRunning := tl.state == TimelineRunning
	tl.state = TimelineStopped
	if wasRunning && tl.current >= 0 {
		tl.tasks[tl.current].State().SetDone()
	}
	tl.release()
}

// Dispatch delivers e to the current task. It reports whether a task
// received the event.
func (tl *Timeline) Dispatch(e Event) bool {
	t := tl.CurrentTask()
	if t == nil || t.State().done {
		return false
	}
	h, ok := t.(EventHandler)
	if !ok {
		return false
	}
	h.HandleEvent(tl, e)
	return true
}

func (tl *Timeline) next() {
	tl.stopPoll()
	tl.current++
	t := tl.tasks[tl.current]
	st := t.State()
	tl.log.Info("Starting task.", "task", st.kind, "step", fmt.Sprintf("%d of %d", tl.current+1, len(tl.tasks)))

	hint := HintNone
	if h, ok := t.(hinter); ok {
		hint = h.Hint()
	}
	tl.s.npc.SetHint(hint)
	_, chat := t.(*chatInputTask)
	tl.s.chat.Store(chat)

	if st.assignment != "" {
		tl.s.Message(st.assignment, SoundInfo)
	}
	if st.HasProgress() {
		tl.showProgress(st)
		tl.poll = tl.s.reg.conf.Scheduler.Every(tl.s.reg.conf.ProgressInterval, func() {
			tl.showProgress(st)
		})
	}
	t.Perform(tl)
}

// taskDone is called by a task state once it is done. Notifications from
// tasks other than the current one, or after the Timeline stopped, are
// ignored.
func (tl *Timeline) taskDone(st *TaskState) {
	if tl.state != TimelineRunning || tl.current < 0 || tl.tasks[tl.current].State() != st {
		return
	}
	if tl.current == len(tl.tasks)-1 {
		tl.complete()
		return
	}
	tl.next()
}

func (tl *Timeline) complete() {
	tl.state = TimelineCompleted
	tl.release()
	if tl.onComplete != nil {
		tl.onComplete()
	}
}

func (tl *Timeline) release() {
	tl.stopPoll()
	for _, id := range tl.markerList {
		tl.s.reg.conf.Presenter.RemoveMarker(tl.markers[id])
	}
	tl.markers, tl.markerList = nil, nil
	tl.s.npc.SetHint(HintNone)
	tl.s.chat.Store(false)
	tl.tasks = nil
}

func (tl *Timeline) stopPoll() {
	if tl.poll != nil {
		tl.poll.Stop()
		tl.poll = nil
	}
}

func (tl *Timeline) refreshProgress(st *TaskState) {
	if tl.state != TimelineRunning || tl.current < 0 || tl.tasks[tl.current].State() != st {
		return
	}
	tl.showProgress(st)
}

func (tl *Timeline) showProgress(st *TaskState) {
	if st.progress >= st.total && tl.poll != nil {
		// Nothing left to count, the task finishes on its own schedule.
		tl.stopPoll()
	}
	tl.s.reg.conf.Presenter.ShowProgress(tl.s.id, fmt.Sprintf("[%d/%d] %s", st.progress, st.total, st.assignment))
}

// placeMarker places a tip marker in the session's current world, replacing
// any marker with the same id.
func (tl *Timeline) placeMarker(id string, loc Location, content string) {
	if tl.markers == nil {
		return
	}
	tl.removeMarker(id)
	m, err := tl.s.reg.conf.Presenter.PlaceMarker(tl.s.id, id, loc, content)
	if err != nil {
		tl.log.Warn("Could not place tip.", "tip", id, "error", err)
		return
	}
	tl.markers[id] = m
	tl.markerList = append(tl.markerList, id)
}

func (tl *Timeline) removeMarker(id string) {
	m, ok := tl.markers[id]
	if !ok {
		return
	}
	delete(tl.markers, id)
	for i, other := range tl.markerList {
		if other == id {
			tl.markerList = append(tl.markerList[:i], tl.markerList[i+1:]...)
			break
		}
	}
	tl.s.reg.conf.Presenter.RemoveMarker(m)
}

// Marker returns the tip marker placed with the id passed, if it is still
// placed.
func (tl *Timeline) Marker(id string) (Marker, bool) {
	m, ok := tl.markers[id]
	return m, ok
}
