package tutorial

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs tutorial work on a single goroutine. Every mutation of a
// Session, its Timeline and its tasks happens inside a function passed to a
// Scheduler, so no further locking is needed for them.
type Scheduler interface {
	// Exec queues fn to run on the scheduling goroutine. It never blocks.
	Exec(fn func())
	// After runs fn on the scheduling goroutine once d has passed.
	After(d time.Duration, fn func()) Timer
	// Every runs fn on the scheduling goroutine every d until stopped.
	Every(d time.Duration, fn func()) Timer
}

// Timer is a pending call scheduled by a Scheduler. Once Stop returns on the
// scheduling goroutine the call will not run anymore.
type Timer interface {
	Stop()
}

// Loop is a Scheduler backed by a single goroutine draining an unbounded
// queue. Panics raised by queued functions are recovered and logged so that
// one broken tutorial cannot take down the others.
type Loop struct {
	log *slog.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	signal  chan struct{}
	closing chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewLoop starts a Loop. Close must be called to stop its goroutine.
func NewLoop(log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	l := &Loop{
		log:     log.With("subsystem", "tutorial.loop"),
		signal:  make(chan struct{}, 1),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Exec queues fn. Functions queued after Close are dropped.
func (l *Loop) Exec(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// After runs fn on the loop once d has passed.
func (l *Loop) After(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Exec(t.guard(fn))
	})
	return t
}

// Every runs fn on the loop every d. Ticks that arrive while the loop is
// busy queue up rather than being dropped.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	t := &loopTimer{stop: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Exec(t.guard(fn))
			case <-t.stop:
				return
			case <-l.closing:
				return
			}
		}
	}()
	return t
}

// Close runs everything still queued, then stops the loop goroutine. It
// blocks until the goroutine has returned and may be called more than once.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		close(l.closing)
	})
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.signal:
			l.drain()
		case <-l.closing:
			l.drain()
			return
		}
	}
}

// drain runs queued functions until the queue is empty, including functions
// queued by the ones it runs.
func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			l.call(fn)
		}
	}
}

func (l *Loop) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Recovered panic in tutorial callback.", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

type loopTimer struct {
	stopped atomic.Bool
	once    sync.Once
	timer   *time.Timer
	stop    chan struct{}
}

// guard wraps fn so that it does nothing once the timer is stopped. The check
// runs on the loop goroutine, which closes the gap between the time package
// firing and the callback actually running.
func (t *loopTimer) guard(fn func()) func() {
	return func() {
		if !t.stopped.Load() {
			fn()
		}
	}
}

func (t *loopTimer) Stop() {
	t.stopped.Store(true)
	t.once.Do(func() {
		if t.timer != nil {
			t.timer.Stop()
		}
		if t.stop != nil {
			close(t.stop)
		}
	})
}
