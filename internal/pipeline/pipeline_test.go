package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gazeguard/gazeguard-go/internal/alert"
	"github.com/gazeguard/gazeguard-go/internal/conf"
	"github.com/gazeguard/gazeguard-go/internal/detection"
	"github.com/gazeguard/gazeguard-go/internal/eventlog"
	"github.com/gazeguard/gazeguard-go/internal/frame"
	"github.com/gazeguard/gazeguard-go/internal/gaze"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Main: conf.MainSettings{Name: "test-node"},
		Detection: conf.DetectionSettings{
			ConfidenceThreshold: 0.5,
			IOUThreshold:        0.4,
			TimeoutMS:           100,
			MinFacesForAlert:    2,
		},
		Gaze: conf.GazeSettings{Enabled: false},
		Alert: conf.AlertSettings{
			TriggerFramesRequired: 2,
			ClearFramesRequired:   3,
		},
		Overlay: conf.OverlaySettings{
			TargetOpacity:        0.85,
			TransitionDurationMS: 40,
			TickIntervalMS:       5,
		},
		Performance: conf.PerformanceSettings{
			TargetLatencyMS:  200,
			EvaluationWindow: 10,
			MaxFrameSkip:     8,
		},
		EventLog: conf.EventLogSettings{
			Path:              t.TempDir(),
			RotationSizeBytes: 1 << 20,
			RetentionCount:    5,
			QueueSize:         64,
		},
	}
}

// scriptedFaces replays a fixed face-count sequence, one entry per
// frame, and repeats the last entry afterwards.
type scriptedFaces struct {
	counts []int
	calls  int
}

func (m *scriptedFaces) Name() string { return "scripted" }

func (m *scriptedFaces) Detect(_ context.Context, f *frame.Frame) ([]detection.Detection, error) {
	i := m.calls
	if i >= len(m.counts) {
		i = len(m.counts) - 1
	}
	m.calls++

	faces := make([]detection.Detection, m.counts[i])
	for j := range faces {
		// Non-overlapping boxes so deduplication keeps them all.
		faces[j] = detection.Detection{
			X: j * 200, Y: 0, W: 100, H: 100,
			Confidence: 0.9,
			Model:      m.Name(),
		}
	}
	return faces, nil
}

// fixedGaze returns the same estimate for every face region.
type fixedGaze struct {
	est gaze.Estimate
}

func (m *fixedGaze) Name() string { return "fixed" }

func (m *fixedGaze) Estimate(_ context.Context, _ *frame.Frame, _ detection.Detection) (*gaze.Estimate, error) {
	est := m.est
	return &est, nil
}

func enableGaze(settings *conf.Settings) {
	settings.Gaze = conf.GazeSettings{
		Enabled:             true,
		ConfidenceThreshold: 0.6,
		DirectionThreshold:  0.25,
		MinEyeOpenness:      0.2,
		TimeoutMS:           100,
	}
}

// recordingSink counts overlay visibility changes.
type recordingSink struct {
	mu      sync.Mutex
	shown   int
	hidden  int
	opacity float64
}

func (s *recordingSink) SetOpacity(v float64) {
	s.mu.Lock()
	s.opacity = v
	s.mu.Unlock()
}

func (s *recordingSink) Show() {
	s.mu.Lock()
	s.shown++
	s.mu.Unlock()
}

func (s *recordingSink) Hide() {
	s.mu.Lock()
	s.hidden++
	s.mu.Unlock()
}

func readEvents(t *testing.T, dir string) []eventlog.Event {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var events []eventlog.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev eventlog.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func countKind(events []eventlog.Event, kind eventlog.Kind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestNewRequiresSourceAndModel(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	_, err := New(settings, Options{FaceModel: &scriptedFaces{counts: []int{1}}})
	assert.Error(t, err)

	_, err = New(settings, Options{Source: frame.NewSyntheticSource(8, 8, 0, 1)})
	assert.Error(t, err)
}

func TestSingleUserSessionStaysSafe(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 0, 20),
		FaceModel: &scriptedFaces{counts: []int{1}},
	})
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))

	result := p.Result()
	require.NotNil(t, result)
	assert.Equal(t, uint64(20), result.Frames)
	assert.Equal(t, alert.StateSafe, result.FinalState)
	assert.Zero(t, result.DroppedFrames)

	events := readEvents(t, settings.EventLog.Path)
	assert.Equal(t, 1, countKind(events, eventlog.KindSessionStart))
	assert.Equal(t, 1, countKind(events, eventlog.KindSessionEnd))
	assert.Zero(t, countKind(events, eventlog.KindAlertRaised))
	assert.Zero(t, countKind(events, eventlog.KindAlertCleared))
	assert.Equal(t, eventlog.KindSessionStart, events[0].Kind)
}

func TestShoulderSurferRaisesAndClearsAlert(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	sink := &recordingSink{}
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 0, 5),
		FaceModel: &scriptedFaces{counts: []int{2, 2, 1, 1, 1}},
		Sink:      sink,
	})
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))

	result := p.Result()
	require.NotNil(t, result)
	assert.Equal(t, uint64(5), result.Frames)
	assert.Equal(t, alert.StateSafe, result.FinalState, "three clear frames must end the alert")

	events := readEvents(t, settings.EventLog.Path)
	assert.Equal(t, 1, countKind(events, eventlog.KindAlertRaised))
	assert.Equal(t, 1, countKind(events, eventlog.KindAlertCleared))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.shown, "overlay must appear once for the alert")
	assert.Equal(t, 1, sink.hidden, "overlay must be hidden again by session end")
	assert.Zero(t, sink.opacity, "session must end with the screen visible")
}

func TestLowConfidenceGazeDoesNotRaiseAlert(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	enableGaze(settings)
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 0, 10),
		FaceModel: &scriptedFaces{counts: []int{1}},
		GazeModel: &fixedGaze{est: gaze.Estimate{
			Vector:      [2]float64{0.0, 0.0},
			Confidence:  0.1,
			EyeOpenness: 0.9,
		}},
	})
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))

	result := p.Result()
	require.NotNil(t, result)
	assert.Equal(t, alert.StateSafe, result.FinalState,
		"a blurry estimate is absence of evidence, not away evidence")

	events := readEvents(t, settings.EventLog.Path)
	assert.Zero(t, countKind(events, eventlog.KindAlertRaised))
}

func TestConfidentAwayGazeRaisesAlert(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	enableGaze(settings)
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 0, 10),
		FaceModel: &scriptedFaces{counts: []int{1}},
		GazeModel: &fixedGaze{est: gaze.Estimate{
			Vector:      [2]float64{0.9, 0.0},
			Confidence:  0.9,
			EyeOpenness: 0.8,
		}},
	})
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))

	result := p.Result()
	require.NotNil(t, result)
	assert.Equal(t, alert.StateAlert, result.FinalState)

	events := readEvents(t, settings.EventLog.Path)
	assert.Equal(t, 1, countKind(events, eventlog.KindAlertRaised))
}

func TestPausedSessionStashesFrames(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 0, 3),
		FaceModel: &scriptedFaces{counts: []int{2}},
	})
	require.NoError(t, err)

	p.Pause()
	assert.True(t, p.Paused())
	require.NoError(t, p.Run(context.Background()))

	result := p.Result()
	require.NotNil(t, result)
	assert.Zero(t, result.Frames, "paused sessions must not run the detection cycle")
	assert.Equal(t, uint64(2), result.DroppedFrames, "stashed frames are overwritten most-recent-wins")
	assert.Equal(t, alert.StateSafe, result.FinalState)
}

func TestStashedFrameDoesNotInflateLatency(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 0, 1),
		FaceModel: &scriptedFaces{counts: []int{1}},
	})
	require.NoError(t, err)

	// A frame held across a pause is seconds old by the time it is
	// processed; only the processing time may enter the latency window.
	stale := &frame.Frame{
		Width: 64, Height: 48, Seq: 1,
		Timestamp: time.Now().Add(-5 * time.Second),
	}
	p.processFrame(context.Background(), stale, true)

	m := p.perf.Snapshot()
	assert.Less(t, m.RollingLatencyMS, 1000.0,
		"pause duration must not count as pipeline latency")

	require.NoError(t, p.events.Close())
}

func TestPauseResumeToggling(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 0, 1),
		FaceModel: &scriptedFaces{counts: []int{1}},
	})
	require.NoError(t, err)

	assert.False(t, p.Paused())
	p.Pause()
	p.Pause() // double pause is a no-op
	assert.True(t, p.Paused())
	p.Resume()
	assert.False(t, p.Paused())
	p.Resume() // double resume is a no-op
	assert.False(t, p.Paused())

	require.NoError(t, p.events.Close())
}

func TestCancelledContextEndsSession(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 50*time.Millisecond, 0),
		FaceModel: &scriptedFaces{counts: []int{1}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	result := p.Result()
	require.NotNil(t, result)

	events := readEvents(t, settings.EventLog.Path)
	assert.Equal(t, 1, countKind(events, eventlog.KindSessionEnd),
		"cancellation must still record the session end")
}

func TestExportSummaryAfterRun(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	p, err := New(settings, Options{
		Source:    frame.NewSyntheticSource(64, 48, 0, 5),
		FaceModel: &scriptedFaces{counts: []int{1}},
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	require.NoError(t, p.ExportSummary(""))

	data, err := os.ReadFile(filepath.Join(settings.EventLog.Path, "session-summary.json"))
	require.NoError(t, err)

	var summary eventlog.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, p.SessionID(), summary.SessionID)
	assert.Equal(t, uint64(5), summary.TotalFrames)
}
