// config.go: settings struct for the GazeGuard pipeline and functions to load and validate it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig describes a rotating file log destination.
type LogConfig struct {
	Enabled  bool   // true to enable this log
	Path     string // path to log file
	MaxSize  int64  // maximum file size in bytes before rotation
	MaxAge   int    // maximum age of rotated files in days
	Backups  int    // maximum number of rotated files to keep
	Rotation string // rotation policy: "daily", "weekly" or "size"
}

// Rotation policy names accepted by LogConfig.Rotation.
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

// MainSettings contains node-level settings.
type MainSettings struct {
	Name string    // name of this monitoring node
	Log  LogConfig // service log settings
}

// DetectionSettings configures the face locator and deduplicator.
type DetectionSettings struct {
	ConfidenceThreshold float64 // minimum detection confidence, detections below are discarded
	IOUThreshold        float64 // IoU above which overlapping detections are merged
	TimeoutMS           int     // per-call budget for the locator backend
	MinFacesForAlert    int     // number of simultaneous faces that counts as a threat
}

// GazeSettings configures the gaze classifier.
type GazeSettings struct {
	Enabled             bool    // false disables gaze estimation entirely
	ConfidenceThreshold float64 // minimum gaze confidence to count an observation as evidence
	DirectionThreshold  float64 // gaze vector magnitude beyond which direction leaves center
	MinEyeOpenness      float64 // minimum eye openness for a looking-at-screen verdict
	TimeoutMS           int     // per-call budget for the classifier backend
}

// AlertSettings configures the hysteresis state machine.
type AlertSettings struct {
	TriggerFramesRequired int // consecutive trigger cycles before raising an alert
	ClearFramesRequired   int // consecutive clear cycles before clearing an alert
}

// OverlaySettings configures the protective overlay controller.
type OverlaySettings struct {
	TargetOpacity        float64 // opacity the overlay fades to when active
	TransitionDurationMS int     // duration of a full fade in milliseconds
	TickIntervalMS       int     // overlay tick cadence in milliseconds
}

// PerformanceSettings configures adaptive frame scheduling.
type PerformanceSettings struct {
	TargetLatencyMS  int // rolling cycle latency the scheduler aims to stay under
	EvaluationWindow int // cycles between frame-skip adjustments
	MaxFrameSkip     int // upper bound on the frame-skip factor
}

// EventLogSettings configures the durable event log.
type EventLogSettings struct {
	Path              string // directory for event log files
	RotationSizeBytes int64  // active file size that triggers rotation
	RetentionCount    int    // rotated files kept before the oldest is deleted
	RetentionDays     int    // rotated files older than this are deleted
	QueueSize         int    // bounded queue between the hot path and the writer
	SuppressionTTLMS  int    // window for suppressing identical detection events
}

// MonitoringSettings configures system resource monitoring.
type MonitoringSettings struct {
	Enabled              bool    // true to enable resource monitoring
	CheckIntervalSeconds int     // sampling interval
	CPUWarning           float64 // CPU usage percent for warning level
	CPUCritical          float64 // CPU usage percent for critical level
	MemoryWarning        float64 // memory usage percent for warning level
	MemoryCritical       float64 // memory usage percent for critical level
}

// TelemetrySettings configures the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose metrics over HTTP
	Listen  string // listen address and port of telemetry endpoint
}

// Settings is the full configuration surface of the pipeline. It is
// loaded once at session start and treated as immutable afterwards.
type Settings struct {
	Debug bool // enable debug output

	Main        MainSettings
	Detection   DetectionSettings
	Gaze        GazeSettings
	Alert       AlertSettings
	Overlay     OverlaySettings
	Performance PerformanceSettings
	EventLog    EventLogSettings
	Monitoring  MonitoringSettings
	Telemetry   TelemetrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment into a Settings
// struct, validates it and stores it as the active instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Fail fast on invalid configuration, before any frame is processed.
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Defaults defined in defaults.go.
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first
// default config path and loads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetDefaultConfigPaths returns the list of directories searched for a
// config file: the user config dir followed by the working directory.
func GetDefaultConfigPaths() ([]string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("error resolving user config dir: %w", err)
	}
	return []string{filepath.Join(configDir, "gazeguard-go"), "."}, nil
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting is a shorthand for GetSettings.
func Setting() *Settings {
	return GetSettings()
}
