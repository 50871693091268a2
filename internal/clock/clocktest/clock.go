// Package clocktest provides a manually advanced clock.Clock for tests.
package clocktest

import (
	"sync"
	"time"

	"github.com/waabox/autolog/internal/clock"
)

// Clock is a clock.Clock whose time only moves when Advance is called.
// Due timers fire on the goroutine that calls Advance, in time order
// (ties in the order they were scheduled).
type Clock struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	timers  []*timer
	firings int
}

var _ clock.Clock = (*Clock)(nil)

// New returns a Clock at elapsed time zero.
func New() *Clock {
	return &Clock{}
}

type timer struct {
	c       *Clock
	at      time.Duration
	period  time.Duration
	seq     int
	f       func()
	stopped bool
}

// AfterFunc schedules f once, d from the current elapsed time.
func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return c.schedule(d, 0, f)
}

// TickFunc schedules f every d.
func (c *Clock) TickFunc(d time.Duration, f func()) clock.Timer {
	if d <= 0 {
		panic("clocktest: non-positive tick period")
	}
	return c.schedule(d, d, f)
}

func (c *Clock) schedule(d, period time.Duration, f func()) *timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{c: c, at: c.now + d, period: period, seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer.
func (t *timer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.c.remove(t)
	return true
}

func (c *Clock) remove(t *timer) {
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// Advance moves time forward by d, firing every timer that falls due.
// Callbacks run without the clock's lock held, so they may schedule or stop timers.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		if next.period > 0 {
			next.at += next.period
		} else {
			next.stopped = true
			c.remove(next)
		}
		c.firings++
		f := next.f
		c.mu.Unlock()

		f()
	}
}

func (c *Clock) nextDue(target time.Duration) *timer {
	var next *timer
	for _, t := range c.timers {
		if t.at > target {
			continue
		}
		if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// Elapsed returns how far the clock has been advanced.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending returns the number of live timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Firings returns the total number of callbacks fired so far.
func (c *Clock) Firings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firings
}
