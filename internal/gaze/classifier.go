// Package gaze wraps a landmark-based gaze estimation capability and
// turns raw gaze vectors into screen-relative observations.
package gaze

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/gazeguard/gazeguard-go/internal/detection"
	"github.com/gazeguard/gazeguard-go/internal/frame"
)

// ErrGazeUnavailable signals that landmark extraction failed for one
// face region. Callers must treat it as absence of evidence, not as
// the subject looking away.
var ErrGazeUnavailable = errors.New("gaze: landmark extraction failed")

// Estimate is the raw output of a gaze backend for one face region.
type Estimate struct {
	// Vector is the raw 2D gaze vector; the classifier normalizes it.
	Vector [2]float64

	// Confidence of the landmark fit, 0.0-1.0.
	Confidence float64

	// EyeOpenness estimate, 0.0-1.0.
	EyeOpenness float64

	// Head pose in degrees, zero when the backend has no pose.
	Pitch float64
	Yaw   float64
	Roll  float64
}

// Model is the gaze estimation capability consumed by the Classifier.
type Model interface {
	// Name identifies the backend in logs.
	Name() string

	// Estimate extracts a raw gaze estimate for the face region.
	// It returns ErrGazeUnavailable when landmarks cannot be fitted,
	// for example under occlusion or extreme angles.
	Estimate(ctx context.Context, f *frame.Frame, region detection.Detection) (*Estimate, error)
}

// Config holds classifier thresholds.
type Config struct {
	// ConfidenceThreshold is the minimum confidence for an
	// observation to count as evidence of looking away.
	ConfidenceThreshold float64

	// DirectionThreshold is the normalized vector magnitude beyond
	// which the gaze leaves center.
	DirectionThreshold float64

	// MinEyeOpenness is required for a looking-at-screen verdict.
	MinEyeOpenness float64

	// Timeout bounds a single backend call.
	Timeout time.Duration
}

// degradedAfter is the consecutive backend failure count at which the
// classifier raises its degraded flag. ErrGazeUnavailable does not
// count; it means the backend is alive but could not fit landmarks.
const degradedAfter = 3

// Classifier projects raw gaze estimates onto the screen and
// classifies the direction.
type Classifier struct {
	cfg    Config
	model  Model
	logger *slog.Logger

	failureStreak atomic.Int32
	degraded      atomic.Bool
}

// New creates a classifier for the given backend model.
func New(cfg Config, model Model, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		cfg:    cfg,
		model:  model,
		logger: logger.With("service", "gaze"),
	}
}

// Classify returns the gaze observation for a face region, or nil when
// landmark extraction fails. A nil observation is not an error
// condition for the pipeline.
func (c *Classifier) Classify(ctx context.Context, f *frame.Frame, region detection.Detection) *detection.GazeObservation {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	est, err := c.model.Estimate(callCtx, f, region)
	if err != nil || est == nil {
		if err != nil && !errors.Is(err, ErrGazeUnavailable) {
			c.recordFailure(err)
			c.logger.Debug("gaze backend error", "backend", c.model.Name(), "error", err)
		} else {
			c.recordSuccess()
		}
		return nil
	}
	c.recordSuccess()

	// Direction is judged on the raw projected vector; normalizing
	// first would inflate tiny off-center offsets to unit magnitude.
	direction := c.classifyDirection(est.Vector)

	obs := &detection.GazeObservation{
		Vector:      normalize(est.Vector),
		Direction:   direction,
		Confidence:  est.Confidence,
		EyeOpenness: est.EyeOpenness,
		Pitch:       est.Pitch,
		Yaw:         est.Yaw,
		Roll:        est.Roll,
	}

	// All three conditions, not any one: a centered vector alone is
	// not enough under motion blur or closed eyes.
	obs.LookingAtScreen = direction == detection.GazeCenter &&
		est.EyeOpenness >= c.cfg.MinEyeOpenness &&
		est.Confidence >= c.cfg.ConfidenceThreshold

	// Away evidence needs the same confidence bar. Otherwise every
	// blurry estimate would read as the subject looking away.
	obs.LookingAway = !obs.LookingAtScreen &&
		est.Confidence >= c.cfg.ConfidenceThreshold

	return obs
}

// Degraded reports whether the backend has failed for degradedAfter
// or more consecutive calls.
func (c *Classifier) Degraded() bool {
	return c.degraded.Load()
}

func (c *Classifier) recordFailure(err error) {
	streak := c.failureStreak.Add(1)
	if streak >= degradedAfter && !c.degraded.Swap(true) {
		c.logger.Warn("entering degraded mode after consecutive gaze backend failures",
			"streak", streak,
			"backend", c.model.Name(),
			"error", err,
		)
	}
}

func (c *Classifier) recordSuccess() {
	c.failureStreak.Store(0)
	if c.degraded.Swap(false) {
		c.logger.Info("gaze backend recovered", "backend", c.model.Name())
	}
}

// classifyDirection maps a normalized gaze vector to a screen-relative
// direction. Magnitude beyond the threshold on the dominant axis moves
// the direction away from center; upward gaze keeps center since the
// screen is above the camera in the usual laptop geometry.
func (c *Classifier) classifyDirection(vec [2]float64) detection.GazeDirection {
	gx, gy := vec[0], vec[1]

	if math.Abs(gx) >= math.Abs(gy) {
		switch {
		case gx < -c.cfg.DirectionThreshold:
			return detection.GazeLeft
		case gx > c.cfg.DirectionThreshold:
			return detection.GazeRight
		default:
			return detection.GazeCenter
		}
	}

	if gy > c.cfg.DirectionThreshold {
		return detection.GazeDown
	}
	return detection.GazeCenter
}

// normalize returns the unit vector for v, or the zero vector when v
// has no magnitude.
func normalize(v [2]float64) [2]float64 {
	mag := math.Hypot(v[0], v[1])
	if mag == 0 {
		return [2]float64{}
	}
	return [2]float64{v[0] / mag, v[1] / mag}
}
