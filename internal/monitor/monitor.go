// Package monitor samples host CPU and memory usage and classifies
// the result into pressure levels with threshold hysteresis.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/gazeguard/gazeguard-go/internal/conf"
	"github.com/gazeguard/gazeguard-go/internal/logging"
)

// Level is the pressure classification of a sampled resource.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// hysteresisPercent is subtracted from a threshold before a resource
// may leave the level it entered, so a value oscillating around the
// threshold does not flap between levels.
const hysteresisPercent = 5.0

const defaultInterval = 30 * time.Second

// Snapshot is the most recent sampling result.
type Snapshot struct {
	CPUPercent    float64
	MemoryPercent float64
	CPULevel      Level
	MemoryLevel   Level
	At            time.Time
}

// Overall returns the worse of the two resource levels.
func (s Snapshot) Overall() Level {
	if s.CPULevel > s.MemoryLevel {
		return s.CPULevel
	}
	return s.MemoryLevel
}

// sampler reads one resource's usage as a percentage. Replaced in
// tests.
type sampler func(ctx context.Context) (float64, error)

// Monitor periodically samples CPU and memory usage and keeps the
// latest classified snapshot. An optional callback is invoked whenever
// the overall level changes.
type Monitor struct {
	cfg       conf.MonitoringSettings
	interval  time.Duration
	log       *slog.Logger
	sampleCPU sampler
	sampleMem sampler
	onChange  func(Level)

	mu       sync.RWMutex
	snapshot Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a monitor from the monitoring settings. onChange may be
// nil.
func New(cfg conf.MonitoringSettings, onChange func(Level)) *Monitor {
	interval := defaultInterval
	if cfg.CheckIntervalSeconds > 0 {
		interval = time.Duration(cfg.CheckIntervalSeconds) * time.Second
	}

	return &Monitor{
		cfg:      cfg,
		interval: interval,
		log:      logging.ForService("monitor"),
		sampleCPU: func(ctx context.Context) (float64, error) {
			// A zero interval reports usage since the previous call
			// instead of blocking for a sampling window.
			percents, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil {
				return 0, err
			}
			if len(percents) == 0 {
				return 0, nil
			}
			return percents[0], nil
		},
		sampleMem: func(ctx context.Context) (float64, error) {
			vm, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return vm.UsedPercent, nil
		},
		onChange: onChange,
	}
}

// Start launches the sampling loop. It is a no-op when monitoring is
// disabled in the configuration.
func (m *Monitor) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		m.log.Debug("resource monitoring disabled")
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.run(ctx)

	m.log.Info("resource monitor started",
		"interval", m.interval,
		"cpu_warning", m.cfg.CPUWarning,
		"cpu_critical", m.cfg.CPUCritical,
		"memory_warning", m.cfg.MemoryWarning,
		"memory_critical", m.cfg.MemoryCritical)
}

// Stop terminates the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
}

// Latest returns the most recent snapshot.
func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Prime the CPU counter so the first ticked sample covers a real
	// window.
	if _, err := m.sampleCPU(ctx); err != nil {
		m.log.Warn("initial cpu sample failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.sampleOnce(ctx, now)
		}
	}
}

// sampleOnce reads both resources and updates the snapshot, notifying
// on overall level changes.
func (m *Monitor) sampleOnce(ctx context.Context, now time.Time) {
	cpuPct, err := m.sampleCPU(ctx)
	if err != nil {
		m.log.Warn("cpu sample failed", "error", err)
	}
	memPct, err := m.sampleMem(ctx)
	if err != nil {
		m.log.Warn("memory sample failed", "error", err)
	}

	m.mu.Lock()
	prev := m.snapshot
	next := Snapshot{
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
		CPULevel:      classify(cpuPct, prev.CPULevel, m.cfg.CPUWarning, m.cfg.CPUCritical),
		MemoryLevel:   classify(memPct, prev.MemoryLevel, m.cfg.MemoryWarning, m.cfg.MemoryCritical),
		At:            now,
	}
	m.snapshot = next
	m.mu.Unlock()

	if next.CPULevel != prev.CPULevel {
		m.log.Info("cpu pressure level changed",
			"from", prev.CPULevel.String(), "to", next.CPULevel.String(), "usage", cpuPct)
	}
	if next.MemoryLevel != prev.MemoryLevel {
		m.log.Info("memory pressure level changed",
			"from", prev.MemoryLevel.String(), "to", next.MemoryLevel.String(), "usage", memPct)
	}

	if m.onChange != nil && next.Overall() != prev.Overall() {
		m.onChange(next.Overall())
	}
}

// classify maps a usage percentage to a level. Leaving a level
// requires dropping below its threshold minus the hysteresis band.
func classify(value float64, current Level, warning, critical float64) Level {
	switch current {
	case LevelCritical:
		if value > critical-hysteresisPercent {
			return LevelCritical
		}
	case LevelWarning:
		if value >= critical {
			return LevelCritical
		}
		if value > warning-hysteresisPercent {
			return LevelWarning
		}
	default:
	}

	if value >= critical {
		return LevelCritical
	}
	if value >= warning {
		return LevelWarning
	}
	return LevelNormal
}
