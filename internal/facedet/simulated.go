package facedet

import (
	"context"
	"math/rand"
	"time"

	"github.com/gazeguard/gazeguard-go/internal/detection"
	"github.com/gazeguard/gazeguard-go/internal/frame"
)

// SimulatedModel produces randomized detections without a real
// backend. Used by the benchmark command to exercise the full pipeline
// with a controllable cost per call.
type SimulatedModel struct {
	// Latency is the simulated inference cost per call.
	Latency time.Duration

	// SecondFaceChance is the probability (0-1) that a frame contains
	// a second face besides the primary user.
	SecondFaceChance float64
}

// Name implements Model.
func (m *SimulatedModel) Name() string { return "simulated" }

// Detect implements Model. It always reports one face for the primary
// user and, with SecondFaceChance probability, a second overlapping
// observer.
func (m *SimulatedModel) Detect(ctx context.Context, f *frame.Frame) ([]detection.Detection, error) {
	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}

	w, h := f.Width/4, f.Height/3
	dets := []detection.Detection{
		{X: f.Width / 3, Y: f.Height / 4, W: w, H: h, Confidence: 0.93, Model: m.Name()},
	}
	if rand.Float64() < m.SecondFaceChance {
		dets = append(dets, detection.Detection{
			X: f.Width * 2 / 3, Y: f.Height / 4, W: w, H: h,
			Confidence: 0.71, Model: m.Name(),
		})
	}
	return dets, nil
}
