// Package watch implements the long-running monitoring command.
package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gazeguard/gazeguard-go/internal/conf"
	"github.com/gazeguard/gazeguard-go/internal/facedet"
	"github.com/gazeguard/gazeguard-go/internal/frame"
	"github.com/gazeguard/gazeguard-go/internal/gaze"
	"github.com/gazeguard/gazeguard-go/internal/logging"
	"github.com/gazeguard/gazeguard-go/internal/observability"
	"github.com/gazeguard/gazeguard-go/internal/pipeline"
)

var (
	captureWidth  int
	captureHeight int
	captureFPS    int
	summaryPath   string
)

// Command creates the watch command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor the camera feed in realtime",
		Long:  "Start the detection pipeline and keep the protective overlay in sync with the alert state until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	return cmd
}

// setupFlags configures flags specific to the watch command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.EventLog.Path, "logpath", viper.GetString("eventlog.path"), "Directory for event log files")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")
	cmd.Flags().IntVar(&captureWidth, "width", 640, "Capture frame width")
	cmd.Flags().IntVar(&captureHeight, "height", 480, "Capture frame height")
	cmd.Flags().IntVar(&captureFPS, "fps", 30, "Capture frame rate")
	cmd.Flags().StringVar(&summaryPath, "summary", "", "Write the session summary JSON to this path on exit")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func runWatch(ctx context.Context, settings *conf.Settings) error {
	log := logging.ForService("watch")

	if captureFPS < 1 {
		return fmt.Errorf("capture frame rate must be positive, got %d", captureFPS)
	}
	interval := time.Second / time.Duration(captureFPS)

	var metrics *observability.Metrics
	if settings.Telemetry.Enabled {
		var err error
		metrics, err = observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	p, err := pipeline.New(settings, pipeline.Options{
		Source:    frame.NewSyntheticSource(captureWidth, captureHeight, interval, 0),
		FaceModel: &facedet.SimulatedModel{},
		GazeModel: &gaze.SimulatedModel{},
		Metrics:   metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metrics != nil {
		endpoint, err := observability.NewEndpoint(settings, metrics)
		if err != nil {
			return err
		}
		endpoint.Start(ctx)
	}

	notifyPauseSignals(ctx, p)

	log.Info("watch starting", "session_id", p.SessionID(), "width", captureWidth, "height", captureHeight, "fps", captureFPS)
	if err := p.Run(ctx); err != nil {
		return err
	}

	if err := p.ExportSummary(summaryPath); err != nil {
		log.Error("failed to export session summary", "error", err)
	}

	result := p.Result()
	fmt.Printf("Session %s: %d frames processed, %d dropped, %.1f fps\n",
		result.SessionID, result.Frames, result.DroppedFrames, result.Performance.RollingFPS)
	return nil
}
