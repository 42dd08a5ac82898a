package overlay

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures sink calls for assertions.
type recordingSink struct {
	mu        sync.Mutex
	opacities []float64
	shows     int
	hides     int
}

func (s *recordingSink) SetOpacity(v float64) {
	s.mu.Lock()
	s.opacities = append(s.opacities, v)
	s.mu.Unlock()
}

func (s *recordingSink) Show() {
	s.mu.Lock()
	s.shows++
	s.mu.Unlock()
}

func (s *recordingSink) Hide() {
	s.mu.Lock()
	s.hides++
	s.mu.Unlock()
}

func testController(sink RenderSink) *Controller {
	return NewController(Config{
		TargetOpacity:      0.85,
		TransitionDuration: 300 * time.Millisecond,
		TickInterval:       16 * time.Millisecond,
	}, sink)
}

// tickThrough advances the controller with synthetic 16ms ticks and
// returns the opacity trace.
func tickThrough(c *Controller, start time.Time, ticks int) []float64 {
	trace := make([]float64, 0, ticks)
	now := start
	for i := 0; i < ticks; i++ {
		now = now.Add(16 * time.Millisecond)
		trace = append(trace, c.Tick(now))
	}
	return trace
}

func TestFadeInMonotonicReachesTarget(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	start := time.Unix(1000, 0)
	c.Tick(start) // establish the clock

	c.OnAlertEdge(true)
	require.Equal(t, StateFadingIn, c.State())

	// 300ms transition at 16ms ticks: target within duration ± one tick.
	trace := tickThrough(c, start, 20)
	for i := 1; i < len(trace); i++ {
		assert.GreaterOrEqual(t, trace[i], trace[i-1], "opacity must be non-decreasing during fade-in")
	}
	assert.InDelta(t, 0.85, trace[len(trace)-1], 1e-9)
	assert.Equal(t, StateActive, c.State())
}

func TestFadeOutReturnsToIdle(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	start := time.Unix(1000, 0)
	c.Tick(start)

	c.OnAlertEdge(true)
	tickThrough(c, start, 20)
	require.Equal(t, StateActive, c.State())

	c.OnAlertEdge(false)
	require.Equal(t, StateFadingOut, c.State())

	trace := tickThrough(c, start.Add(20*16*time.Millisecond), 20)
	for i := 1; i < len(trace); i++ {
		assert.LessOrEqual(t, trace[i], trace[i-1], "opacity must be non-increasing during fade-out")
	}
	assert.Zero(t, trace[len(trace)-1])
	assert.Equal(t, StateIdle, c.State())
}

func TestReversalKeepsOpacityContinuous(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	start := time.Unix(1000, 0)
	c.Tick(start)

	// Fade fully in, then fade out halfway.
	c.OnAlertEdge(true)
	tickThrough(c, start, 20)
	c.OnAlertEdge(false)
	now := start.Add(20 * 16 * time.Millisecond)
	for i := 0; i < 8; i++ {
		now = now.Add(16 * time.Millisecond)
		c.Tick(now)
	}
	require.Equal(t, StateFadingOut, c.State())
	midOpacity := c.Opacity()
	require.Greater(t, midOpacity, 0.0)

	// A new alert mid-fade-out must reverse from the current opacity.
	c.OnAlertEdge(true)
	require.Equal(t, StateFadingIn, c.State())

	now = now.Add(16 * time.Millisecond)
	after := c.Tick(now)

	maxStep := 0.85 * 16.0 / 300.0
	assert.LessOrEqual(t, math.Abs(after-midOpacity), maxStep+1e-9,
		"reversal must not jump opacity by more than one tick's change")
}

func TestSinkShowHideLifecycle(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	c := testController(sink)
	start := time.Unix(1000, 0)
	c.Tick(start)

	c.OnAlertEdge(true)
	tickThrough(c, start, 20)
	c.OnAlertEdge(false)
	tickThrough(c, start.Add(20*16*time.Millisecond), 20)

	assert.Equal(t, 1, sink.shows)
	assert.Equal(t, 1, sink.hides)
	require.NotEmpty(t, sink.opacities)
	assert.Zero(t, sink.opacities[len(sink.opacities)-1])
}

func TestAlertEdgeWhileActiveIsNoop(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	start := time.Unix(1000, 0)
	c.Tick(start)

	c.OnAlertEdge(true)
	tickThrough(c, start, 20)
	require.Equal(t, StateActive, c.State())

	c.OnAlertEdge(true)
	assert.Equal(t, StateActive, c.State())
	assert.InDelta(t, 0.85, c.Opacity(), 1e-9)
}

func TestForceFadeOutFromActive(t *testing.T) {
	t.Parallel()

	c := testController(nil)
	start := time.Unix(1000, 0)
	c.Tick(start)

	c.OnAlertEdge(true)
	tickThrough(c, start, 20)
	require.Equal(t, StateActive, c.State())

	c.ForceFadeOut()
	assert.Equal(t, StateFadingOut, c.State())

	tickThrough(c, start.Add(20*16*time.Millisecond), 25)
	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, c.Opacity())
}
