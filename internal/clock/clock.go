// Package clock abstracts the timers the reveal animation runs on, so that
// tests can drive time by hand.
package clock

import (
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop prevents any further firing. It returns false if the timer had
	// already fired (one-shot) or was already stopped. Stopping twice is a no-op.
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	// AfterFunc calls f once, after d.
	AfterFunc(d time.Duration, f func()) Timer
	// TickFunc calls f every d until the returned Timer is stopped.
	// The first call happens after d.
	TickFunc(d time.Duration, f func()) Timer
}

// Real returns a Clock backed by the runtime timers.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) TickFunc(d time.Duration, f func()) Timer {
	rt := &repeatingTimer{period: d, f: f}
	rt.mu.Lock()
	rt.t = time.AfterFunc(d, rt.fire)
	rt.mu.Unlock()
	return rt
}

// repeatingTimer re-arms a one-shot timer after each call instead of running a
// time.Ticker goroutine, so a stopped timer leaves nothing behind.
type repeatingTimer struct {
	period  time.Duration
	f       func()
	mu      sync.Mutex
	t       *time.Timer
	stopped bool
}

func (rt *repeatingTimer) fire() {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return
	}
	rt.mu.Unlock()

	rt.f()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.stopped {
		rt.t = time.AfterFunc(rt.period, rt.fire)
	}
}

func (rt *repeatingTimer) Stop() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.stopped {
		return false
	}
	rt.stopped = true
	rt.t.Stop()
	return true
}
