// Package benchmark measures detection cycle throughput with
// simulated backends.
package benchmark

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gazeguard/gazeguard-go/internal/conf"
	"github.com/gazeguard/gazeguard-go/internal/facedet"
	"github.com/gazeguard/gazeguard-go/internal/frame"
	"github.com/gazeguard/gazeguard-go/internal/gaze"
	"github.com/gazeguard/gazeguard-go/internal/pipeline"
)

var (
	frameCount       int
	detectionLatency time.Duration
	secondFaceChance float64
)

// Command creates the benchmark command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run a detection cycle benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			if frameCount < 1 {
				return fmt.Errorf("frame count must be positive, got %d", frameCount)
			}
			return runBenchmark(cmd.Context(), settings)
		},
	}

	cmd.Flags().IntVarP(&frameCount, "frames", "n", 1000, "number of frames to process")
	cmd.Flags().DurationVar(&detectionLatency, "latency", 5*time.Millisecond, "simulated per-frame detection latency")
	cmd.Flags().Float64Var(&secondFaceChance, "surfer", 0.1, "probability of a second simulated face per frame (0-1)")

	return cmd
}

func runBenchmark(ctx context.Context, settings *conf.Settings) error {
	// Benchmarks log to a scratch directory so a real session log is
	// never polluted.
	scratch, err := scratchDir()
	if err != nil {
		return err
	}
	bench := *settings
	bench.EventLog.Path = scratch

	p, err := pipeline.New(&bench, pipeline.Options{
		Source: frame.NewSyntheticSource(640, 480, 0, uint64(frameCount)),
		FaceModel: &facedet.SimulatedModel{
			Latency:          detectionLatency,
			SecondFaceChance: secondFaceChance,
		},
		GazeModel: &gaze.SimulatedModel{AwayChance: 0.1},
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	fmt.Printf("Processing %d frames (simulated detection latency %s)...\n", frameCount, detectionLatency)
	start := time.Now()
	if err := p.Run(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	result := p.Result()
	m := result.Performance

	fmt.Printf("\nResults:\n")
	fmt.Printf("  wall time:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  frames processed: %d\n", m.FramesProcessed)
	fmt.Printf("  frames skipped:   %d\n", m.FramesSkipped)
	fmt.Printf("  rolling fps:      %.1f\n", m.RollingFPS)
	fmt.Printf("  rolling latency:  %.1f ms\n", m.RollingLatencyMS)
	fmt.Printf("  final skip:       %d\n", m.SkipFactor)
	return nil
}

func scratchDir() (string, error) {
	dir, err := os.MkdirTemp("", "gazeguard-bench-")
	if err != nil {
		return "", fmt.Errorf("failed to create benchmark scratch directory: %w", err)
	}
	return dir, nil
}
