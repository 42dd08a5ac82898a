// Package overlay drives the protective screen overlay through its
// fade transitions. The controller is clocked by wall time, not by the
// detection cadence, so a slow detection cycle never stalls a fade.
package overlay

import (
	"context"
	"sync"
	"time"
)

// State is the overlay transition state.
type State int

const (
	StateIdle State = iota
	StateFadingIn
	StateActive
	StateFadingOut
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFadingIn:
		return "fading_in"
	case StateActive:
		return "active"
	case StateFadingOut:
		return "fading_out"
	default:
		return "unknown"
	}
}

// RenderSink receives opacity updates from the controller. The
// rendering implementation lives outside this core.
type RenderSink interface {
	SetOpacity(value float64)
	Show()
	Hide()
}

// Config holds the overlay transition settings.
type Config struct {
	// TargetOpacity is the opacity reached when the overlay is fully
	// active.
	TargetOpacity float64

	// TransitionDuration is the time of a full fade from 0 to
	// TargetOpacity (and back).
	TransitionDuration time.Duration

	// TickInterval is the cadence of the overlay clock.
	TickInterval time.Duration
}

// Controller is the time-driven overlay state machine.
//
// Tick and OnAlertEdge are the only mutators. Both are safe for
// concurrent use: the tick loop and the detection loop run on
// different goroutines.
type Controller struct {
	cfg  Config
	sink RenderSink

	mu       sync.Mutex
	state    State
	opacity  float64
	lastTick time.Time
}

// NewController creates an idle controller with opacity 0.
func NewController(cfg Config, sink RenderSink) *Controller {
	return &Controller{cfg: cfg, sink: sink}
}

// OnAlertEdge reacts to an alert transition edge. An entered edge
// starts a fade-in; while fading out it reverses direction from the
// current opacity, so the visible opacity never jumps. A cleared edge
// starts the fade-out.
func (c *Controller) OnAlertEdge(entered bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entered {
		switch c.state {
		case StateIdle, StateFadingOut:
			c.enterLocked(StateFadingIn)
		}
		return
	}

	switch c.state {
	case StateActive, StateFadingIn:
		c.enterLocked(StateFadingOut)
	}
}

// Tick advances the fade by the wall-clock time elapsed since the last
// tick and returns the current opacity.
func (c *Controller) Tick(now time.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Duration(0)
	if !c.lastTick.IsZero() {
		elapsed = now.Sub(c.lastTick)
	}
	c.lastTick = now
	if elapsed <= 0 {
		return c.opacity
	}

	// Linear ramp: a full fade covers TargetOpacity over
	// TransitionDuration.
	step := c.cfg.TargetOpacity * float64(elapsed) / float64(c.cfg.TransitionDuration)

	switch c.state {
	case StateFadingIn:
		c.opacity += step
		if c.opacity >= c.cfg.TargetOpacity {
			c.opacity = c.cfg.TargetOpacity
			c.enterLocked(StateActive)
		}
	case StateFadingOut:
		c.opacity -= step
		if c.opacity <= 0 {
			c.opacity = 0
			c.enterLocked(StateIdle)
		}
	}

	if c.sink != nil {
		c.sink.SetOpacity(c.opacity)
	}
	return c.opacity
}

// enterLocked performs state-entry side effects. Callers hold c.mu.
func (c *Controller) enterLocked(s State) {
	prev := c.state
	c.state = s

	if c.sink == nil {
		return
	}
	switch {
	case s == StateFadingIn && prev == StateIdle:
		c.sink.Show()
	case s == StateIdle:
		c.sink.Hide()
	}
}

// State returns the current transition state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Opacity returns the current opacity without advancing the clock.
func (c *Controller) Opacity() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opacity
}

// ForceFadeOut deterministically drives the overlay toward idle,
// regardless of alert state. Used during session shutdown.
func (c *Controller) ForceFadeOut() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateFadingIn, StateActive:
		c.enterLocked(StateFadingOut)
	}
}

// Run ticks the controller at the configured interval until ctx is
// cancelled, then forces a deterministic settle to idle.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.settle()
			return
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}

// settle finishes the shutdown fade synchronously so the session ends
// with the overlay hidden.
func (c *Controller) settle() {
	c.ForceFadeOut()
	deadline := time.Now().Add(c.cfg.TransitionDuration + c.cfg.TickInterval)
	for c.State() != StateIdle && time.Now().Before(deadline) {
		time.Sleep(c.cfg.TickInterval)
		c.Tick(time.Now())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		c.opacity = 0
		c.enterLocked(StateIdle)
		if c.sink != nil {
			c.sink.SetOpacity(0)
		}
	}
}
