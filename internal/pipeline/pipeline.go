// Package pipeline wires the capture, detection, gaze, alert and
// overlay stages into one session and owns its lifecycle.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gazeguard/gazeguard-go/internal/alert"
	"github.com/gazeguard/gazeguard-go/internal/conf"
	"github.com/gazeguard/gazeguard-go/internal/detection"
	"github.com/gazeguard/gazeguard-go/internal/eventlog"
	"github.com/gazeguard/gazeguard-go/internal/facedet"
	"github.com/gazeguard/gazeguard-go/internal/frame"
	"github.com/gazeguard/gazeguard-go/internal/gaze"
	"github.com/gazeguard/gazeguard-go/internal/logging"
	"github.com/gazeguard/gazeguard-go/internal/monitor"
	"github.com/gazeguard/gazeguard-go/internal/observability"
	"github.com/gazeguard/gazeguard-go/internal/overlay"
	"github.com/gazeguard/gazeguard-go/internal/perf"
)

// Options carries the pluggable backends of a session. Source and
// FaceModel are required; the rest may be nil.
type Options struct {
	Source            frame.Source
	FaceModel         facedet.Model
	FallbackFaceModel facedet.Model
	GazeModel         gaze.Model
	Sink              overlay.RenderSink
	Metrics           *observability.Metrics
}

// Result summarizes a finished session.
type Result struct {
	SessionID     string
	Frames        uint64
	DroppedFrames uint64
	FinalState    alert.State
	Performance   perf.Metrics
	StartedAt     time.Time
	EndedAt       time.Time
}

// noopSink is used when no overlay renderer is attached, e.g. in
// benchmark mode.
type noopSink struct{}

func (noopSink) SetOpacity(float64) {}
func (noopSink) Show()              {}
func (noopSink) Hide()              {}

// Pipeline runs one monitoring session: it pulls frames, runs the
// detection cycle and drives the alert machine and overlay. A
// Pipeline is single-use; construct a new one per session.
type Pipeline struct {
	settings  *conf.Settings
	log       *slog.Logger
	sessionID string

	source     frame.Source
	locator    *facedet.Locator
	classifier *gaze.Classifier
	evaluator  *alert.Evaluator
	overlay    *overlay.Controller
	perf       *perf.Monitor
	events     *eventlog.Logger
	metrics    *observability.Metrics
	resources  *monitor.Monitor

	// inbox buffers frames pulled while paused; most recent wins.
	inbox  frame.LatestSlot
	paused atomic.Bool

	// pressure biases the frame-skip factor under resource load.
	pressure atomic.Int32

	result atomic.Pointer[Result]
}

// New assembles a pipeline from the settings and backends.
func New(settings *conf.Settings, opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, errors.New("pipeline requires a frame source")
	}
	if opts.FaceModel == nil {
		return nil, errors.New("pipeline requires a face detection model")
	}

	log := logging.ForService("pipeline")
	sessionID := uuid.New().String()

	events, err := eventlog.New(eventlog.Config{
		Dir:            settings.EventLog.Path,
		RotationSize:   settings.EventLog.RotationSizeBytes,
		RetentionCount: settings.EventLog.RetentionCount,
		RetentionAge:   time.Duration(settings.EventLog.RetentionDays) * 24 * time.Hour,
		QueueSize:      settings.EventLog.QueueSize,
		SuppressionTTL: time.Duration(settings.EventLog.SuppressionTTLMS) * time.Millisecond,
	}, sessionID, log)
	if err != nil {
		return nil, err
	}

	locator := facedet.New(facedet.Config{
		ConfidenceThreshold: settings.Detection.ConfidenceThreshold,
		Timeout:             time.Duration(settings.Detection.TimeoutMS) * time.Millisecond,
	}, opts.FaceModel, opts.FallbackFaceModel, log)

	var classifier *gaze.Classifier
	if settings.Gaze.Enabled && opts.GazeModel != nil {
		classifier = gaze.New(gaze.Config{
			ConfidenceThreshold: settings.Gaze.ConfidenceThreshold,
			DirectionThreshold:  settings.Gaze.DirectionThreshold,
			MinEyeOpenness:      settings.Gaze.MinEyeOpenness,
			Timeout:             time.Duration(settings.Gaze.TimeoutMS) * time.Millisecond,
		}, opts.GazeModel, log)
	}

	sink := opts.Sink
	if sink == nil {
		sink = noopSink{}
	}

	p := &Pipeline{
		settings:   settings,
		log:        log,
		sessionID:  sessionID,
		source:     opts.Source,
		locator:    locator,
		classifier: classifier,
		evaluator: alert.NewEvaluator(alert.Config{
			MinFacesForAlert:      settings.Detection.MinFacesForAlert,
			TriggerFramesRequired: settings.Alert.TriggerFramesRequired,
			ClearFramesRequired:   settings.Alert.ClearFramesRequired,
		}),
		overlay: overlay.NewController(overlay.Config{
			TargetOpacity:      settings.Overlay.TargetOpacity,
			TransitionDuration: time.Duration(settings.Overlay.TransitionDurationMS) * time.Millisecond,
			TickInterval:       time.Duration(settings.Overlay.TickIntervalMS) * time.Millisecond,
		}, sink),
		perf: perf.NewMonitor(perf.Config{
			TargetLatency: time.Duration(settings.Performance.TargetLatencyMS) * time.Millisecond,
			WindowSize:    settings.Performance.EvaluationWindow,
			MaxSkip:       settings.Performance.MaxFrameSkip,
		}),
		events:  events,
		metrics: opts.Metrics,
	}
	p.resources = monitor.New(settings.Monitoring, func(level monitor.Level) {
		p.pressure.Store(int32(level))
		p.log.Info("resource pressure changed", "level", level.String())
	})

	return p, nil
}

// SessionID returns the identifier stamped on this session's events.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// Pause suspends the detection cycle. Frames pulled while paused are
// stashed most-recent-wins; the overlay tick and log flush stay alive,
// so an active overlay keeps protecting the screen.
func (p *Pipeline) Pause() {
	if p.paused.Swap(true) {
		return
	}
	p.log.Info("pipeline paused")
}

// Resume reactivates the detection cycle. The freshest frame stashed
// during the pause is processed first.
func (p *Pipeline) Resume() {
	if !p.paused.Swap(false) {
		return
	}
	p.log.Info("pipeline resumed")
}

// Paused reports whether the detection cycle is suspended.
func (p *Pipeline) Paused() bool {
	return p.paused.Load()
}

// Metrics returns a point-in-time performance snapshot.
func (p *Pipeline) Metrics() perf.Metrics {
	return p.perf.Snapshot()
}

// Result returns the session summary, or nil while the session is
// still running.
func (p *Pipeline) Result() *Result {
	return p.result.Load()
}

// ExportSummary writes the session summary JSON next to the event log,
// or to path when non-empty. Valid after Run returns.
func (p *Pipeline) ExportSummary(path string) error {
	if path == "" {
		path = filepath.Join(p.settings.EventLog.Path, "session-summary.json")
	}
	m := p.perf.Snapshot()
	return p.events.Export(path, m.RollingFPS, m.RollingLatencyMS)
}

// Run executes the session until the source ends or ctx is cancelled.
// Shutdown is ordered: the detection loop stops first, then the
// overlay settles to idle, then the event log is drained and closed.
func (p *Pipeline) Run(ctx context.Context) error {
	started := time.Now()
	p.log.Info("session starting", "session_id", p.sessionID, "node", p.settings.Main.Name)

	p.events.Append(eventlog.NewEvent(eventlog.KindSessionStart, map[string]any{
		"session_id": p.sessionID,
		"node":       p.settings.Main.Name,
	}))

	p.resources.Start(ctx)

	overlayCtx, overlayCancel := context.WithCancel(context.Background())
	overlayDone := make(chan struct{})
	go func() {
		defer close(overlayDone)
		p.overlay.Run(overlayCtx)
	}()

	runErr := p.loop(ctx)

	// Ordered shutdown. The overlay settles before the session end is
	// recorded so the log closes with the screen visible again.
	p.resources.Stop()
	overlayCancel()
	<-overlayDone

	m := p.perf.Snapshot()
	p.events.Append(eventlog.NewEvent(eventlog.KindSessionEnd, map[string]any{
		"session_id":     p.sessionID,
		"frames":         m.FramesProcessed,
		"frames_skipped": m.FramesSkipped,
		"dropped_frames": p.inbox.Drops(),
	}))
	if err := p.events.Close(); err != nil {
		p.log.Error("event log close failed", "error", err)
	}

	p.result.Store(&Result{
		SessionID:     p.sessionID,
		Frames:        m.FramesProcessed,
		DroppedFrames: p.inbox.Drops(),
		FinalState:    p.evaluator.Latest().State,
		Performance:   m,
		StartedAt:     started,
		EndedAt:       time.Now(),
	})

	p.log.Info("session ended",
		"session_id", p.sessionID,
		"frames", m.FramesProcessed,
		"rolling_fps", m.RollingFPS,
		"final_state", p.evaluator.Latest().State.String())

	return runErr
}

// loop is the detection cycle. It runs in the caller's goroutine and
// returns when the source is exhausted or ctx is cancelled.
func (p *Pipeline) loop(ctx context.Context) error {
	skipRemaining := 0

	for {
		f, stashed, err := p.next(ctx)
		switch {
		case errors.Is(err, frame.ErrEndOfStream):
			p.log.Info("frame source ended")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			// An unrecoverable source terminates the session; Run
			// still records SESSION_END after this returns.
			p.events.Append(eventlog.NewEvent(eventlog.KindError, map[string]any{
				"stage": "capture",
				"error": err.Error(),
			}))
			p.log.Error("frame source failed", "error", err)
			return err
		}

		if p.paused.Load() {
			p.inbox.Put(f)
			continue
		}

		if skipRemaining > 0 {
			skipRemaining--
			p.perf.RecordSkipped(1)
			if p.metrics != nil {
				p.metrics.Pipeline.RecordSkipped(1)
			}
			continue
		}

		p.processFrame(ctx, f, stashed)
		skipRemaining = p.effectiveSkip()
	}
}

// next returns the freshest available frame: the pause stash when one
// exists, otherwise a fresh pull from the source. stashed reports
// which path produced the frame.
func (p *Pipeline) next(ctx context.Context) (f *frame.Frame, stashed bool, err error) {
	if !p.paused.Load() {
		if f := p.inbox.Take(); f != nil {
			return f, true, nil
		}
	}
	f, err = p.source.Next(ctx)
	return f, false, err
}

// effectiveSkip combines the adaptive skip factor with the resource
// pressure bias, capped at the configured maximum.
func (p *Pipeline) effectiveSkip() int {
	skip := p.perf.RecommendedSkip()
	switch monitor.Level(p.pressure.Load()) {
	case monitor.LevelWarning:
		skip++
	case monitor.LevelCritical:
		skip += 2
	}
	if limit := p.settings.Performance.MaxFrameSkip; limit > 0 && skip > limit {
		skip = limit
	}
	return skip
}

// processFrame runs one full detection cycle on f. stashed marks a
// frame held across a pause.
func (p *Pipeline) processFrame(ctx context.Context, f *frame.Frame, stashed bool) {
	cycleStart := time.Now()

	faces, err := p.locator.Locate(ctx, f)
	if err != nil {
		// Degrade to a zero-face cycle rather than stalling the loop.
		if p.metrics != nil {
			p.metrics.Pipeline.RecordDetectionError("face")
		}
		p.events.Append(eventlog.NewEvent(eventlog.KindError, map[string]any{
			"stage": "face",
			"error": err.Error(),
		}))
		p.log.Warn("face detection unavailable", "seq", f.Seq, "error", err)
		faces = nil
	}
	faces = detection.Dedupe(faces, p.settings.Detection.IOUThreshold)

	anyAway := false
	if p.classifier != nil {
		for _, face := range faces {
			obs := p.classifier.Classify(ctx, f, face)
			if obs == nil {
				if p.metrics != nil {
					p.metrics.Pipeline.RecordDetectionError("gaze")
				}
				continue
			}
			if obs.LookingAway {
				anyAway = true
			}
		}
	}

	snap := p.evaluator.Evaluate(len(faces), anyAway)

	if snap.JustEnteredAlert {
		p.overlay.OnAlertEdge(true)
		p.events.Append(eventlog.NewEvent(eventlog.KindAlertRaised, map[string]any{
			"face_count":   snap.FaceCount,
			"looking_away": snap.AnyLookingAway,
		}))
		p.log.Warn("alert raised", "face_count", snap.FaceCount, "looking_away", snap.AnyLookingAway)
	}
	if snap.JustClearedAlert {
		p.overlay.OnAlertEdge(false)
		p.events.Append(eventlog.NewEvent(eventlog.KindAlertCleared, nil))
		p.log.Info("alert cleared")
	}

	if len(faces) > 0 {
		p.events.Append(eventlog.NewEvent(eventlog.KindDetection, map[string]any{
			"face_count":   len(faces),
			"looking_away": anyAway,
			"state":        snap.State.String(),
		}))
	}

	latency := time.Since(f.Timestamp)
	if stashed {
		// A frame held across a pause carries the whole pause in its
		// age; sample only the processing time so one frame cannot
		// inflate the skip factor for a full window after resume.
		latency = time.Since(cycleStart)
	}
	p.perf.RecordCycle(latency)
	p.events.RecordFrame()

	if p.metrics != nil {
		pm := p.metrics.Pipeline
		pm.RecordCycle(time.Since(cycleStart).Seconds(), len(faces))
		if anyAway {
			pm.RecordGazeAway()
		}
		degraded := p.locator.Degraded()
		if p.classifier != nil && p.classifier.Degraded() {
			degraded = true
		}
		pm.UpdateDegraded(degraded)
		m := p.perf.Snapshot()
		pm.UpdatePerformance(m.SkipFactor, m.RollingFPS)
		pm.UpdateAlertState(int(snap.State), snap.JustEnteredAlert, snap.JustClearedAlert)
		pm.UpdateOverlay(int(p.overlay.State()), p.overlay.Opacity())
		p.metrics.EventLog.Update(p.events.Dropped(), p.events.WriteFailures())
	}
}
