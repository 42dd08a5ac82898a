// defaults.go: default configuration values applied before the config file is read.
package conf

import "github.com/spf13/viper"

// setDefaultConfig sets viper defaults for every configuration
// parameter. Values mirror the embedded config.yaml.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Node settings
	viper.SetDefault("main.name", "GazeGuard-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/gazeguard.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10*1024*1024)
	viper.SetDefault("main.log.maxage", 28)
	viper.SetDefault("main.log.backups", 3)

	// Face detection
	viper.SetDefault("detection.confidencethreshold", 0.5)
	viper.SetDefault("detection.iouthreshold", 0.4)
	viper.SetDefault("detection.timeoutms", 200)
	viper.SetDefault("detection.minfacesforalert", 2)

	// Gaze estimation
	viper.SetDefault("gaze.enabled", true)
	viper.SetDefault("gaze.confidencethreshold", 0.6)
	viper.SetDefault("gaze.directionthreshold", 0.25)
	viper.SetDefault("gaze.mineyeopenness", 0.2)
	viper.SetDefault("gaze.timeoutms", 200)

	// Alert debouncing
	viper.SetDefault("alert.triggerframesrequired", 2)
	viper.SetDefault("alert.clearframesrequired", 3)

	// Overlay
	viper.SetDefault("overlay.targetopacity", 0.85)
	viper.SetDefault("overlay.transitiondurationms", 300)
	viper.SetDefault("overlay.tickintervalms", 16)

	// Adaptive scheduling
	viper.SetDefault("performance.targetlatencyms", 200)
	viper.SetDefault("performance.evaluationwindow", 10)
	viper.SetDefault("performance.maxframeskip", 8)

	// Event log
	viper.SetDefault("eventlog.path", "logs")
	viper.SetDefault("eventlog.rotationsizebytes", 10*1024*1024)
	viper.SetDefault("eventlog.retentioncount", 5)
	viper.SetDefault("eventlog.retentiondays", 30)
	viper.SetDefault("eventlog.queuesize", 512)
	viper.SetDefault("eventlog.suppressionttlms", 1000)

	// Resource monitoring
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.checkintervalseconds", 30)
	viper.SetDefault("monitoring.cpuwarning", 85.0)
	viper.SetDefault("monitoring.cpucritical", 95.0)
	viper.SetDefault("monitoring.memorywarning", 85.0)
	viper.SetDefault("monitoring.memorycritical", 95.0)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")
}
