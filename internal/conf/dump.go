package conf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DumpYAML renders the effective settings as YAML, after defaults,
// config file, environment and flags have all been applied.
func DumpYAML(settings *Settings) (string, error) {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("error marshaling settings to yaml: %w", err)
	}
	return string(data), nil
}
