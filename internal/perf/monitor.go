// Package perf tracks rolling pipeline performance and drives the
// adaptive frame-skip factor that keeps cycle latency under its
// target.
package perf

import (
	"sync"
	"time"
)

// Config holds the monitor settings.
type Config struct {
	// TargetLatency is the rolling cycle latency the scheduler aims
	// to stay under.
	TargetLatency time.Duration

	// WindowSize is the number of recent cycles in the rolling
	// averages and between skip adjustments.
	WindowSize int

	// MaxSkip caps the frame-skip factor.
	MaxSkip int
}

// Metrics is a point-in-time snapshot of pipeline performance.
type Metrics struct {
	RollingFPS       float64
	RollingLatencyMS float64
	SkipFactor       int
	FramesProcessed  uint64
	FramesSkipped    uint64
}

// lowerBand is the fraction of the target latency under which the
// skip factor is allowed to relax.
const lowerBand = 0.7

// Monitor keeps a fixed-window rolling view of cycle latency and
// completion times. Safe for concurrent use; the detection loop writes,
// metrics consumers read.
type Monitor struct {
	cfg Config

	mu              sync.Mutex
	latencies       []time.Duration
	completions     []time.Time
	next            int
	filled          int
	skip            int
	cyclesSinceEval int
	framesProcessed uint64
	framesSkipped   uint64
}

// NewMonitor creates a monitor with the given configuration.
func NewMonitor(cfg Config) *Monitor {
	if cfg.WindowSize < 1 {
		cfg.WindowSize = 10
	}
	return &Monitor{
		cfg:         cfg,
		latencies:   make([]time.Duration, cfg.WindowSize),
		completions: make([]time.Time, cfg.WindowSize),
	}
}

// RecordCycle records the capture-to-result latency of one completed
// cycle and, once per evaluation window, re-evaluates the skip factor.
func (m *Monitor) RecordCycle(latency time.Duration) {
	m.recordCycleAt(latency, time.Now())
}

// recordCycleAt is the testable core of RecordCycle.
func (m *Monitor) recordCycleAt(latency time.Duration, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latencies[m.next] = latency
	m.completions[m.next] = now
	m.next = (m.next + 1) % m.cfg.WindowSize
	if m.filled < m.cfg.WindowSize {
		m.filled++
	}
	m.framesProcessed++

	// Adjust at most one skip level per evaluation window to avoid
	// oscillation.
	m.cyclesSinceEval++
	if m.cyclesSinceEval < m.cfg.WindowSize {
		return
	}
	m.cyclesSinceEval = 0

	rolling := m.rollingLatencyLocked()
	switch {
	case rolling > m.cfg.TargetLatency && m.skip < m.cfg.MaxSkip:
		m.skip++
	case rolling < time.Duration(float64(m.cfg.TargetLatency)*lowerBand) && m.skip > 0:
		m.skip--
	}
}

// RecordSkipped accounts for frames discarded by the scheduler.
func (m *Monitor) RecordSkipped(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.framesSkipped += uint64(n)
	m.mu.Unlock()
}

// RecommendedSkip returns how many incoming frames the scheduler
// should discard before processing the next one. Never negative.
func (m *Monitor) RecommendedSkip() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skip
}

// Snapshot returns the current rolling metrics.
func (m *Monitor) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Metrics{
		RollingFPS:       m.rollingFPSLocked(),
		RollingLatencyMS: float64(m.rollingLatencyLocked()) / float64(time.Millisecond),
		SkipFactor:       m.skip,
		FramesProcessed:  m.framesProcessed,
		FramesSkipped:    m.framesSkipped,
	}
}

func (m *Monitor) rollingLatencyLocked() time.Duration {
	if m.filled == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < m.filled; i++ {
		sum += m.latencies[i]
	}
	return sum / time.Duration(m.filled)
}

// rollingFPSLocked derives throughput from the span between the oldest
// and newest completion in the window.
func (m *Monitor) rollingFPSLocked() float64 {
	if m.filled < 2 {
		return 0
	}
	newest := (m.next - 1 + m.cfg.WindowSize) % m.cfg.WindowSize
	oldest := 0
	if m.filled == m.cfg.WindowSize {
		oldest = m.next
	}
	span := m.completions[newest].Sub(m.completions[oldest])
	if span <= 0 {
		return 0
	}
	return float64(m.filled-1) / span.Seconds()
}
