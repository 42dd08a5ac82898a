// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors.
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct. A non-nil
// result means the session must not start.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateDetectionSettings(&settings.Detection); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateGazeSettings(&settings.Gaze); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateAlertSettings(&settings.Alert); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateOverlaySettings(&settings.Overlay); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validatePerformanceSettings(&settings.Performance); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateEventLogSettings(&settings.EventLog); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateMonitoringSettings(&settings.Monitoring); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDetectionSettings(settings *DetectionSettings) error {
	var errs []string

	if settings.ConfidenceThreshold < 0 || settings.ConfidenceThreshold > 1 {
		errs = append(errs, "detection confidence threshold must be between 0 and 1")
	}
	if settings.IOUThreshold < 0 || settings.IOUThreshold > 1 {
		errs = append(errs, "detection IoU threshold must be between 0 and 1")
	}
	if settings.TimeoutMS <= 0 {
		errs = append(errs, "detection timeout must be greater than 0")
	}
	if settings.MinFacesForAlert < 1 {
		errs = append(errs, "minimum faces for alert must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGazeSettings(settings *GazeSettings) error {
	var errs []string

	if settings.ConfidenceThreshold < 0 || settings.ConfidenceThreshold > 1 {
		errs = append(errs, "gaze confidence threshold must be between 0 and 1")
	}
	if settings.DirectionThreshold <= 0 || settings.DirectionThreshold >= 1 {
		errs = append(errs, "gaze direction threshold must be between 0 and 1 exclusive")
	}
	if settings.MinEyeOpenness < 0 || settings.MinEyeOpenness > 1 {
		errs = append(errs, "minimum eye openness must be between 0 and 1")
	}
	if settings.Enabled && settings.TimeoutMS <= 0 {
		errs = append(errs, "gaze timeout must be greater than 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAlertSettings(settings *AlertSettings) error {
	var errs []string

	if settings.TriggerFramesRequired < 1 {
		errs = append(errs, "trigger frames required must be at least 1")
	}
	if settings.ClearFramesRequired < 1 {
		errs = append(errs, "clear frames required must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateOverlaySettings(settings *OverlaySettings) error {
	var errs []string

	if settings.TargetOpacity <= 0 || settings.TargetOpacity > 1 {
		errs = append(errs, "overlay target opacity must be between 0 exclusive and 1")
	}
	if settings.TransitionDurationMS <= 0 {
		errs = append(errs, "overlay transition duration must be greater than 0")
	}
	if settings.TickIntervalMS <= 0 {
		errs = append(errs, "overlay tick interval must be greater than 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePerformanceSettings(settings *PerformanceSettings) error {
	var errs []string

	if settings.TargetLatencyMS <= 0 {
		errs = append(errs, "target latency must be greater than 0")
	}
	if settings.EvaluationWindow < 1 {
		errs = append(errs, "evaluation window must be at least 1 cycle")
	}
	if settings.MaxFrameSkip < 0 {
		errs = append(errs, "maximum frame skip cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEventLogSettings(settings *EventLogSettings) error {
	var errs []string

	if settings.Path == "" {
		errs = append(errs, "event log path cannot be empty")
	}
	if settings.RotationSizeBytes <= 0 {
		errs = append(errs, "event log rotation size must be greater than 0")
	}
	if settings.RetentionCount < 1 {
		errs = append(errs, "event log retention count must be at least 1")
	}
	if settings.QueueSize < 1 {
		errs = append(errs, "event log queue size must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMonitoringSettings(settings *MonitoringSettings) error {
	var errs []string

	if !settings.Enabled {
		return nil
	}
	if settings.CheckIntervalSeconds < 1 {
		errs = append(errs, "monitoring check interval must be at least 1 second")
	}
	if settings.CPUWarning <= 0 || settings.CPUWarning > 100 {
		errs = append(errs, "CPU warning threshold must be between 0 and 100")
	}
	if settings.CPUCritical <= settings.CPUWarning || settings.CPUCritical > 100 {
		errs = append(errs, "CPU critical threshold must be above the warning threshold and at most 100")
	}
	if settings.MemoryWarning <= 0 || settings.MemoryWarning > 100 {
		errs = append(errs, "memory warning threshold must be between 0 and 100")
	}
	if settings.MemoryCritical <= settings.MemoryWarning || settings.MemoryCritical > 100 {
		errs = append(errs, "memory critical threshold must be above the warning threshold and at most 100")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
