// Package reveal types a fixed greeting out one character at a time.
//
// An Engine waits for an initial delay, then reveals one more rune of its target
// on every tick of a repeating timer until the whole text is shown. The engine
// owns both timers and releases them in Stop, whatever state it is in.
package reveal

import (
	"sync"
	"time"

	"github.com/waabox/autolog/internal/clock"
)

// DefaultGreeting is the text shown on the sign-in screen.
const DefaultGreeting = "Welcome to AutoLog"

// State is the engine's position in its lifecycle.
type State int

const (
	Idle State = iota
	Delaying
	Revealing
	Done
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Delaying:
		return "delaying"
	case Revealing:
		return "revealing"
	case Done:
		return "done"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Timing holds the initial delay and the per-character period.
type Timing struct {
	Delay  time.Duration
	Period time.Duration
}

// DefaultTiming returns 100ms before the first character and 100ms between characters.
func DefaultTiming() Timing {
	return Timing{Delay: 100 * time.Millisecond, Period: 100 * time.Millisecond}
}

// Engine is the reveal state machine. It is safe for concurrent use.
type Engine struct {
	target []rune
	timing Timing
	clk    clock.Clock

	// emitMu serialises reveal callbacks with Stop.
	emitMu   sync.Mutex
	mu       sync.Mutex
	state    State
	revealed int
	delay    clock.Timer
	ticker   clock.Timer

	// OnReveal, if set, is called with the visible prefix after each reveal.
	// Set it before Start. Calls happen in tick order and outside the engine's
	// state lock, so the hook may read the engine, but it must not call Stop:
	// Stop waits for a call in progress.
	OnReveal func(text string)
}

// New creates an idle engine for target. Non-positive timing values fall back
// to DefaultTiming.
func New(target string, timing Timing, clk clock.Clock) *Engine {
	def := DefaultTiming()
	if timing.Delay <= 0 {
		timing.Delay = def.Delay
	}
	if timing.Period <= 0 {
		timing.Period = def.Period
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Engine{
		target: []rune(target),
		timing: timing,
		clk:    clk,
	}
}

// Start arms the initial delay. It only has an effect on an idle engine.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle {
		return
	}
	e.state = Delaying
	e.delay = e.clk.AfterFunc(e.timing.Delay, e.delayElapsed)
}

func (e *Engine) delayElapsed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Delaying {
		return
	}
	e.delay = nil
	if len(e.target) == 0 {
		e.state = Done
		return
	}
	e.state = Revealing
	e.ticker = e.clk.TickFunc(e.timing.Period, e.tick)
}

func (e *Engine) tick() {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	if e.state != Revealing {
		e.mu.Unlock()
		return
	}
	var text string
	revealedOne := false
	if e.revealed < len(e.target) {
		e.revealed++
		text = string(e.target[:e.revealed])
		revealedOne = true
	}
	if e.revealed == len(e.target) {
		e.state = Done
		e.ticker.Stop()
		e.ticker = nil
	}
	hook := e.OnReveal
	e.mu.Unlock()

	if revealedOne && hook != nil {
		hook(text)
	}
}

// Stop cancels whichever timers are still armed. It is safe to call in any
// state and more than once. A reveal already being delivered to OnReveal
// completes first; after Stop returns the engine no longer changes and
// OnReveal is not called again.
func (e *Engine) Stop() {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.delay != nil {
		e.delay.Stop()
		e.delay = nil
	}
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
	if e.state != Done {
		e.state = Stopped
	}
}

// Text returns the currently visible prefix of the target.
func (e *Engine) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.target[:e.revealed])
}

// Revealed returns how many runes are visible.
func (e *Engine) Revealed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revealed
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Target returns the full text being revealed.
func (e *Engine) Target() string {
	return string(e.target)
}
