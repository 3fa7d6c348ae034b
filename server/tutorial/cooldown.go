package tutorial

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// cooldown limits every player to one accepted interaction per window. A
// limiter with a burst of one accepts the first interaction straight away
// and refuses the rest until strictly more than a window has passed since
// the last accepted one. Refused interactions do not reset the window.
type cooldown struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

func newCooldown(window time.Duration, now func() time.Time) *cooldown {
	return &cooldown{window: window, now: now, limiters: make(map[uuid.UUID]*rate.Limiter)}
}

// allow reports whether id may interact now and records the interaction if so.
func (c *cooldown) allow(id uuid.UUID) bool {
	if c.window <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[id]
	if !ok {
		// The bucket refills one nanosecond after the window, so an
		// interaction exactly one window later is still refused.
		l = rate.NewLimiter(rate.Every(c.window+time.Nanosecond), 1)
		c.limiters[id] = l
	}
	return l.AllowN(c.now(), 1)
}

func (c *cooldown) forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.limiters, id)
}

func (c *cooldown) tracked(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.limiters[id]
	return ok
}
