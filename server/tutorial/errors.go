package tutorial

import "errors"

var (
	// ErrTimelineStarted is returned when Start is called on a Timeline that
	// is not in the TimelineNotStarted state.
	ErrTimelineStarted = errors.New("timeline already started")
	// ErrStageOutOfRange is returned when a stage index does not refer to a
	// stage of the tutorial.
	ErrStageOutOfRange = errors.New("stage out of range")
	// ErrWorldOutOfRange is returned when a stage or task refers to a world
	// the tutorial does not declare.
	ErrWorldOutOfRange = errors.New("world out of range")
	// ErrSessionStopped is returned by operations on a session that was
	// already torn down.
	ErrSessionStopped = errors.New("session stopped")
)
