// Package detection provides the domain models for face detection
// processing. These models are runtime values, independent of any
// backend model family: a Detection is what a face locator produced
// for one frame, a FaceObservation is a deduplicated detection
// optionally enriched with a gaze observation.
//
// Detections are immutable once created and never outlive the pipeline
// cycle that produced them.
package detection

import (
	"fmt"
	"image"
)

// Detection represents a single raw face candidate in one frame.
type Detection struct {
	// Bounding box in pixel coordinates.
	X int
	Y int
	W int
	H int

	// Confidence of the detection, 0.0-1.0.
	Confidence float64

	// Model tags the backend that produced the detection, for
	// diagnostics when multiple locators are active.
	Model string
}

// Center returns the center point of the bounding box.
func (d *Detection) Center() image.Point {
	return image.Point{X: d.X + d.W/2, Y: d.Y + d.H/2}
}

// Area returns the bounding box area in pixels.
func (d *Detection) Area() int {
	return d.W * d.H
}

// IoU computes the Intersection-over-Union of two bounding boxes.
// Returns 0 when the boxes do not overlap or the union is empty.
func IoU(a, b *Detection) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.W, b.X+b.W)
	y2 := min(a.Y+a.H, b.Y+b.H)

	inter := max(0, x2-x1) * max(0, y2-y1)
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// NewDetection creates a validated detection. Returns an error if the
// bounding box is degenerate or the confidence is out of range.
func NewDetection(x, y, w, h int, confidence float64, model string) (*Detection, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("bounding box must have positive dimensions, got %dx%d", w, h)
	}
	if x < 0 || y < 0 {
		return nil, fmt.Errorf("bounding box origin cannot be negative, got (%d,%d)", x, y)
	}
	if confidence < 0.0 || confidence > 1.0 {
		return nil, fmt.Errorf("confidence must be between 0.0 and 1.0, got %f", confidence)
	}
	return &Detection{X: x, Y: y, W: w, H: h, Confidence: confidence, Model: model}, nil
}

// GazeDirection is the classified direction of a subject's gaze
// relative to the screen.
type GazeDirection int

const (
	GazeUnknown GazeDirection = iota
	GazeCenter
	GazeLeft
	GazeRight
	GazeDown
)

// String returns the direction name used in logs and exports.
func (d GazeDirection) String() string {
	switch d {
	case GazeCenter:
		return "center"
	case GazeLeft:
		return "left"
	case GazeRight:
		return "right"
	case GazeDown:
		return "down"
	default:
		return "unknown"
	}
}

// GazeObservation holds the gaze estimate for a single face region.
type GazeObservation struct {
	// Vector is the normalized 2D screen-relative gaze vector.
	Vector [2]float64

	// Direction is the classified gaze direction.
	Direction GazeDirection

	// Confidence of the gaze estimate, 0.0-1.0.
	Confidence float64

	// EyeOpenness estimate, 0.0 (closed) to 1.0 (fully open).
	EyeOpenness float64

	// Coarse head pose in degrees. Zero values when the backend does
	// not provide pose.
	Pitch float64
	Yaw   float64
	Roll  float64

	// LookingAtScreen is true only when the direction is center, the
	// eyes are sufficiently open and the confidence clears the
	// configured threshold.
	LookingAtScreen bool

	// LookingAway is true only when the subject is not looking at the
	// screen and the estimate is confident enough to count as
	// evidence. A low-confidence estimate is absence of evidence, not
	// away evidence.
	LookingAway bool
}

// FaceObservation pairs a deduplicated detection with its optional
// gaze observation. A nil Gaze means landmark extraction failed for
// the region and must be treated as absence of evidence.
type FaceObservation struct {
	Detection Detection
	Gaze      *GazeObservation
}
