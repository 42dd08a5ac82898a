// Package metrics provides Prometheus metrics for the detection pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for the detection cycle
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Cycle metrics
	framesProcessedTotal prometheus.Counter
	framesSkippedTotal   prometheus.Counter
	framesDroppedTotal   prometheus.Counter
	cycleDurationSeconds prometheus.Histogram
	frameSkipRate        prometheus.Gauge
	rollingFPS           prometheus.Gauge

	// Detection metrics
	facesDetected        prometheus.Gauge
	detectionErrorsTotal *prometheus.CounterVec
	gazeAwayTotal        prometheus.Counter
	degradedMode         prometheus.Gauge

	// Alert metrics
	alertState         prometheus.Gauge
	alertsRaisedTotal  prometheus.Counter
	alertsClearedTotal prometheus.Counter

	// Overlay metrics
	overlayState   prometheus.Gauge
	overlayOpacity prometheus.Gauge
}

// NewPipelineMetrics creates and registers new pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *PipelineMetrics) initMetrics() error {
	m.framesProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_frames_processed_total",
		Help: "Total number of frames run through the detection cycle",
	})

	m.framesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_frames_skipped_total",
		Help: "Total number of frames skipped by the adaptive frame-skip policy",
	})

	m.framesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_frames_dropped_total",
		Help: "Total number of frames overwritten before the cycle consumed them",
	})

	m.cycleDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_cycle_duration_seconds",
		Help:    "End-to-end duration of one detection cycle",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10), // 1ms to ~1s
	})

	m.frameSkipRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_frame_skip_rate",
		Help: "Current number of frames skipped between processed frames",
	})

	m.rollingFPS = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_rolling_fps",
		Help: "Rolling processed-frames-per-second over the evaluation window",
	})

	m.facesDetected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_faces_detected",
		Help: "Number of faces found in the most recent processed frame",
	})

	m.detectionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_detection_errors_total",
			Help: "Total number of detector and gaze estimator failures",
		},
		[]string{"stage"}, // stage: face, gaze
	)

	m.gazeAwayTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_gaze_away_total",
		Help: "Total number of processed frames where a face was looking away",
	})

	m.degradedMode = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_degraded_mode",
		Help: "1 while the primary face detection backend has a consecutive failure streak",
	})

	m.alertState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_alert_state",
		Help: "Current alert state (0=safe, 1=suspect, 2=alert)",
	})

	m.alertsRaisedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_alerts_raised_total",
		Help: "Total number of raised alerts",
	})

	m.alertsClearedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_alerts_cleared_total",
		Help: "Total number of cleared alerts",
	})

	m.overlayState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_overlay_state",
		Help: "Current overlay state (0=idle, 1=fading_in, 2=active, 3=fading_out)",
	})

	m.overlayOpacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_overlay_opacity",
		Help: "Current overlay opacity between 0 and the configured target",
	})

	return nil
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.framesProcessedTotal.Describe(ch)
	m.framesSkippedTotal.Describe(ch)
	m.framesDroppedTotal.Describe(ch)
	m.cycleDurationSeconds.Describe(ch)
	m.frameSkipRate.Describe(ch)
	m.rollingFPS.Describe(ch)
	m.facesDetected.Describe(ch)
	m.detectionErrorsTotal.Describe(ch)
	m.gazeAwayTotal.Describe(ch)
	m.degradedMode.Describe(ch)
	m.alertState.Describe(ch)
	m.alertsRaisedTotal.Describe(ch)
	m.alertsClearedTotal.Describe(ch)
	m.overlayState.Describe(ch)
	m.overlayOpacity.Describe(ch)
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.framesProcessedTotal.Collect(ch)
	m.framesSkippedTotal.Collect(ch)
	m.framesDroppedTotal.Collect(ch)
	m.cycleDurationSeconds.Collect(ch)
	m.frameSkipRate.Collect(ch)
	m.rollingFPS.Collect(ch)
	m.facesDetected.Collect(ch)
	m.detectionErrorsTotal.Collect(ch)
	m.gazeAwayTotal.Collect(ch)
	m.degradedMode.Collect(ch)
	m.alertState.Collect(ch)
	m.alertsRaisedTotal.Collect(ch)
	m.alertsClearedTotal.Collect(ch)
	m.overlayState.Collect(ch)
	m.overlayOpacity.Collect(ch)
}

// RecordCycle records one completed detection cycle
func (m *PipelineMetrics) RecordCycle(durationSeconds float64, faceCount int) {
	m.framesProcessedTotal.Inc()
	m.cycleDurationSeconds.Observe(durationSeconds)
	m.facesDetected.Set(float64(faceCount))
}

// RecordSkipped accounts frames bypassed by the frame-skip policy
func (m *PipelineMetrics) RecordSkipped(count int) {
	m.framesSkippedTotal.Add(float64(count))
}

// RecordDropped accounts frames overwritten before consumption
func (m *PipelineMetrics) RecordDropped(count uint64) {
	m.framesDroppedTotal.Add(float64(count))
}

// RecordDetectionError records a failed detector or gaze estimator call
func (m *PipelineMetrics) RecordDetectionError(stage string) {
	m.detectionErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordGazeAway records a processed frame with at least one face looking away
func (m *PipelineMetrics) RecordGazeAway() {
	m.gazeAwayTotal.Inc()
}

// UpdateDegraded sets the degraded-mode gauge
func (m *PipelineMetrics) UpdateDegraded(degraded bool) {
	if degraded {
		m.degradedMode.Set(1)
	} else {
		m.degradedMode.Set(0)
	}
}

// UpdatePerformance updates the adaptive throughput gauges
func (m *PipelineMetrics) UpdatePerformance(skipRate int, fps float64) {
	m.frameSkipRate.Set(float64(skipRate))
	m.rollingFPS.Set(fps)
}

// UpdateAlertState sets the alert state gauge and counts edges
func (m *PipelineMetrics) UpdateAlertState(state int, raised, cleared bool) {
	m.alertState.Set(float64(state))
	if raised {
		m.alertsRaisedTotal.Inc()
	}
	if cleared {
		m.alertsClearedTotal.Inc()
	}
}

// UpdateOverlay sets the overlay state and opacity gauges
func (m *PipelineMetrics) UpdateOverlay(state int, opacity float64) {
	m.overlayState.Set(float64(state))
	m.overlayOpacity.Set(opacity)
}
