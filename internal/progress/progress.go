// Package progress drives the staged "working" indicator shown while a draft is
// generated. The indicator stays up for a minimum time so fast responses do not flash.
package progress

import (
	"sync"
	"time"
)

const (
	MinimumVisible = 1800 * time.Millisecond
	StepInterval   = 900 * time.Millisecond
	MaxStep        = 2
)

// Labels are the step captions, indexed by State.StepIndex.
var Labels = [MaxStep + 1]string{"Analyzing input", "Crafting listing", "Optimizing details"}

// Timer is a pending callback scheduled on a Clock.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the controller can be driven deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type State struct {
	Visible   bool
	StepIndex int
}

// Label returns the caption of the current step.
func (s State) Label() string {
	return Labels[s.StepIndex]
}

// VisibleDuration is how long an indicator started at start and stopped at stop stays up.
func VisibleDuration(start, stop time.Time) time.Duration {
	return max(stop.Sub(start), MinimumVisible)
}

// StepAt is the step index after elapsed time.
func StepAt(elapsed time.Duration) int {
	if elapsed < 0 {
		return 0
	}
	return min(int(elapsed/StepInterval), MaxStep)
}

// HideDelay is how long to keep the indicator up after a stop at elapsed.
func HideDelay(elapsed time.Duration) time.Duration {
	return max(MinimumVisible-elapsed, 0)
}

type Option func(*Controller)

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithOnChange registers a callback for every visible state change. It is called
// without the controller lock held.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller tracks one indicator. Start and Stop may be called from any goroutine.
type Controller struct {
	clock    Clock
	onChange func(State)

	mu        sync.Mutex
	run       uint64
	running   bool
	visible   bool
	step      int
	startedAt time.Time
	stepTimer Timer
	hideTimer Timer
}

func New(opts ...Option) *Controller {
	c := &Controller{clock: SystemClock}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start shows the indicator at step 0. Starting again while the indicator is still
// up cancels the pending hide and keeps the original start time and step.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.visible {
		if c.hideTimer != nil {
			c.hideTimer.Stop()
			c.hideTimer = nil
		}
		c.running = true
		c.mu.Unlock()
		return
	}
	c.cancelTimersLocked()
	c.run++
	c.running = true
	c.visible = true
	c.step = 0
	c.startedAt = c.clock.Now()
	c.scheduleStepLocked(c.run)
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

// Stop hides the indicator once it has been visible for MinimumVisible. Steps keep
// advancing until then.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false

	delay := HideDelay(c.clock.Now().Sub(c.startedAt))
	if delay > 0 {
		run := c.run
		c.hideTimer = c.clock.AfterFunc(delay, func() { c.hide(run) })
		c.mu.Unlock()
		return
	}
	c.cancelTimersLocked()
	c.visible = false
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	if !c.visible {
		return State{}
	}
	return State{Visible: true, StepIndex: c.step}
}

func (c *Controller) scheduleStepLocked(run uint64) {
	if c.step >= MaxStep {
		return
	}
	c.stepTimer = c.clock.AfterFunc(StepInterval, func() { c.advance(run) })
}

func (c *Controller) advance(run uint64) {
	c.mu.Lock()
	if run != c.run || !c.visible {
		c.mu.Unlock()
		return
	}
	c.step = StepAt(c.clock.Now().Sub(c.startedAt))
	c.scheduleStepLocked(run)
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

func (c *Controller) hide(run uint64) {
	c.mu.Lock()
	if run != c.run || c.running {
		c.mu.Unlock()
		return
	}
	c.cancelTimersLocked()
	c.visible = false
	state := c.stateLocked()
	c.mu.Unlock()

	c.notify(state)
}

func (c *Controller) cancelTimersLocked() {
	if c.stepTimer != nil {
		c.stepTimer.Stop()
		c.stepTimer = nil
	}
	if c.hideTimer != nil {
		c.hideTimer.Stop()
		c.hideTimer = nil
	}
}

func (c *Controller) notify(state State) {
	if c.onChange != nil {
		c.onChange(state)
	}
}
