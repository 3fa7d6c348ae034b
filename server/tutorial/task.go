package tutorial

// Task is one step of a Timeline. Perform is called exactly once, when the
// task becomes the current task of a running Timeline. It starts the task's
// work and returns without blocking; the task later reports completion by
// calling SetDone on its state.
type Task interface {
	State() *TaskState
	Perform(tl *Timeline)
}

// EventHandler is implemented by tasks that wait for player events. Only the
// current task of a running Timeline receives events.
type EventHandler interface {
	HandleEvent(tl *Timeline, e Event)
}

// hinter is implemented by tasks that want a specific NPC hint while current.
type hinter interface {
	Hint() Hint
}

// TaskState holds the bookkeeping shared by every task. It is meant to be
// embedded so that the embedding type implements the State method of Task.
type TaskState struct {
	kind       string
	assignment string

	progress, total int
	done            bool
	cleanups        []func()

	tl *Timeline
}

// NewTaskState returns the state for a task of the kind passed. assignment is
// shown to the player when the task starts, if not empty. A total above zero
// gives the task measurable progress.
func NewTaskState(kind, assignment string, total int) TaskState {
	return TaskState{kind: kind, assignment: assignment, total: max(total, 0)}
}

// State returns s itself.
func (s *TaskState) State() *TaskState { return s }

// Kind returns the kind of task, used for logging.
func (s *TaskState) Kind() string { return s.kind }

// Assignment returns the text describing what the player should do.
func (s *TaskState) Assignment() string { return s.assignment }

// Done reports whether the task has completed.
func (s *TaskState) Done() bool { return s.done }

// HasProgress reports whether the task has measurable partial completion.
func (s *TaskState) HasProgress() bool { return s.total > 0 }

// Progress returns the current and total progress of the task.
func (s *TaskState) Progress() (progress, total int) { return s.progress, s.total }

// AddProgress increases the progress by one and refreshes the progress
// indicator of the owning Timeline. Progress never exceeds the total.
func (s *TaskState) AddProgress() {
	if s.done || s.progress >= s.total {
		return
	}
	s.progress++
	if s.tl != nil {
		s.tl.refreshProgress(s)
	}
}

// OnDone registers fn to run when the task is done. Cleanups run in reverse
// order of registration, before the Timeline is notified.
func (s *TaskState) OnDone(fn func()) {
	if s.done {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// SetDone marks the task as done, runs its cleanups and notifies the owning
// Timeline. Calls after the first have no effect.
func (s *TaskState) SetDone() {
	if s.done {
		return
	}
	s.done = true
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
	if s.tl != nil {
		s.tl.taskDone(s)
	}
}
