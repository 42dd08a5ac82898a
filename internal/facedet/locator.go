// Package facedet wraps a face detection capability behind a bounded,
// failure-tolerant adapter. The backend model family is opaque to the
// pipeline: swapping models means swapping the Model implementation,
// not the pipeline.
package facedet

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gazeguard/gazeguard-go/internal/detection"
	"github.com/gazeguard/gazeguard-go/internal/frame"
)

// ErrDetectionUnavailable signals that the detection backend failed or
// timed out for one frame. The pipeline degrades by treating the cycle
// as zero faces instead of crashing the loop.
var ErrDetectionUnavailable = errors.New("facedet: detection backend unavailable")

// degradedAfter is the consecutive-failure streak that flips the
// adapter into degraded mode.
const degradedAfter = 3

// Model is the face detection capability consumed by the Locator.
// Implementations must honour ctx cancellation where possible; the
// Locator enforces the call budget regardless.
type Model interface {
	// Name identifies the backend in detection tags and logs.
	Name() string

	// Detect returns raw face candidates for the frame.
	Detect(ctx context.Context, f *frame.Frame) ([]detection.Detection, error)
}

// Config holds the locator settings.
type Config struct {
	// ConfidenceThreshold filters out weak detections before they
	// reach the deduplicator.
	ConfidenceThreshold float64

	// Timeout bounds a single backend call.
	Timeout time.Duration
}

// Locator is the bounded adapter in front of one or two detection
// backends. It is safe for use from a single detection goroutine.
type Locator struct {
	cfg      Config
	primary  Model
	fallback Model // optional, used while the primary is failing

	failureStreak atomic.Int32
	degraded      atomic.Bool

	logger *slog.Logger
}

// New creates a locator for the given primary model. fallback may be
// nil.
func New(cfg Config, primary, fallback Model, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		cfg:      cfg,
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("service", "facedet"),
	}
}

// Degraded reports whether the primary backend has failed for
// degradedAfter or more consecutive calls. The pipeline keeps running
// in degraded mode; external consumers may choose to notify the user.
func (l *Locator) Degraded() bool {
	return l.degraded.Load()
}

// Locate returns the confidence-filtered raw detections for the frame.
//
// On backend failure or timeout it returns an empty slice together
// with ErrDetectionUnavailable; it never returns a partial result and
// never panics the detection loop.
func (l *Locator) Locate(ctx context.Context, f *frame.Frame) ([]detection.Detection, error) {
	dets, err := l.detect(ctx, l.primary, f)
	if err == nil {
		l.recordSuccess()
		return l.filter(dets), nil
	}
	l.recordFailure(err)

	// The fallback covers the cycle while the primary is failing, but
	// the degraded flag stays up until the primary recovers.
	if l.fallback != nil {
		if fbDets, fbErr := l.detect(ctx, l.fallback, f); fbErr == nil {
			return l.filter(fbDets), nil
		}
	}
	return nil, ErrDetectionUnavailable
}

// detect runs one backend call under the configured budget.
func (l *Locator) detect(ctx context.Context, model Model, f *frame.Frame) ([]detection.Detection, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	type result struct {
		dets []detection.Detection
		err  error
	}
	resultChan := make(chan result, 1)

	go func() {
		dets, err := model.Detect(callCtx, f)
		resultChan <- result{dets: dets, err: err}
	}()

	select {
	case <-callCtx.Done():
		return nil, callCtx.Err()
	case res := <-resultChan:
		return res.dets, res.err
	}
}

// filter copies into a fresh slice; backends may retain the slice
// they returned.
func (l *Locator) filter(dets []detection.Detection) []detection.Detection {
	filtered := make([]detection.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= l.cfg.ConfidenceThreshold {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func (l *Locator) recordFailure(err error) {
	streak := l.failureStreak.Add(1)
	if streak >= degradedAfter && !l.degraded.Swap(true) {
		l.logger.Warn("entering degraded mode after consecutive detection failures",
			"streak", streak,
			"backend", l.primary.Name(),
			"error", err,
		)
	}
}

func (l *Locator) recordSuccess() {
	l.failureStreak.Store(0)
	if l.degraded.Swap(false) {
		l.logger.Info("primary detection backend recovered", "backend", l.primary.Name())
	}
}
