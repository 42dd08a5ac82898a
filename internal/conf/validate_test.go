package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validSettings returns a settings struct that passes validation,
// mirroring the embedded defaults.
func validSettings() *Settings {
	return &Settings{
		Detection: DetectionSettings{
			ConfidenceThreshold: 0.5,
			IOUThreshold:        0.4,
			TimeoutMS:           200,
			MinFacesForAlert:    2,
		},
		Gaze: GazeSettings{
			Enabled:             true,
			ConfidenceThreshold: 0.6,
			DirectionThreshold:  0.25,
			MinEyeOpenness:      0.2,
			TimeoutMS:           200,
		},
		Alert: AlertSettings{
			TriggerFramesRequired: 2,
			ClearFramesRequired:   3,
		},
		Overlay: OverlaySettings{
			TargetOpacity:        0.85,
			TransitionDurationMS: 300,
			TickIntervalMS:       16,
		},
		Performance: PerformanceSettings{
			TargetLatencyMS:  200,
			EvaluationWindow: 10,
			MaxFrameSkip:     8,
		},
		EventLog: EventLogSettings{
			Path:              "logs",
			RotationSizeBytes: 10 * 1024 * 1024,
			RetentionCount:    5,
			QueueSize:         512,
		},
		Monitoring: MonitoringSettings{
			Enabled:              true,
			CheckIntervalSeconds: 30,
			CPUWarning:           85,
			CPUCritical:          95,
			MemoryWarning:        85,
			MemoryCritical:       95,
		},
	}
}

func TestValidateSettingsDefaults(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"min faces below one", func(s *Settings) { s.Detection.MinFacesForAlert = 0 }},
		{"confidence above one", func(s *Settings) { s.Detection.ConfidenceThreshold = 1.5 }},
		{"negative IoU threshold", func(s *Settings) { s.Detection.IOUThreshold = -0.1 }},
		{"zero detection timeout", func(s *Settings) { s.Detection.TimeoutMS = 0 }},
		{"gaze confidence negative", func(s *Settings) { s.Gaze.ConfidenceThreshold = -0.2 }},
		{"zero trigger frames", func(s *Settings) { s.Alert.TriggerFramesRequired = 0 }},
		{"zero clear frames", func(s *Settings) { s.Alert.ClearFramesRequired = 0 }},
		{"zero transition duration", func(s *Settings) { s.Overlay.TransitionDurationMS = 0 }},
		{"opacity above one", func(s *Settings) { s.Overlay.TargetOpacity = 1.2 }},
		{"zero target latency", func(s *Settings) { s.Performance.TargetLatencyMS = 0 }},
		{"zero rotation size", func(s *Settings) { s.EventLog.RotationSizeBytes = 0 }},
		{"zero retention count", func(s *Settings) { s.EventLog.RetentionCount = 0 }},
		{"critical below warning", func(s *Settings) { s.Monitoring.CPUCritical = 50 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			require.Error(t, err)

			var ve ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestValidateSettingsAggregatesErrors(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Detection.MinFacesForAlert = 0
	s.Alert.TriggerFramesRequired = 0
	s.Overlay.TickIntervalMS = 0

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}
