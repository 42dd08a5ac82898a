package gaze

import (
	"context"
	"math/rand"

	"github.com/gazeguard/gazeguard-go/internal/detection"
	"github.com/gazeguard/gazeguard-go/internal/frame"
)

// SimulatedModel produces randomized gaze estimates for the benchmark
// command.
type SimulatedModel struct {
	// AwayChance is the probability (0-1) that an estimate points
	// away from the screen.
	AwayChance float64
}

// Name implements Model.
func (m *SimulatedModel) Name() string { return "simulated" }

// Estimate implements Model.
func (m *SimulatedModel) Estimate(ctx context.Context, f *frame.Frame, region detection.Detection) (*Estimate, error) {
	est := &Estimate{
		Vector:      [2]float64{0.05, 0.08},
		Confidence:  0.9,
		EyeOpenness: 0.8,
	}
	if rand.Float64() < m.AwayChance {
		est.Vector = [2]float64{0.9, 0.1}
	}
	return est, nil
}
