// Package processor loads cmd/processor's YAML configuration.
package processor

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBURI               string `yaml:"db_uri"`
	ConnectorConfigPath string `yaml:"connector_config_path"`

	// TickInterval is how often each lifecycle task runs (spec.md §4.7).
	TickInterval string `yaml:"tick_interval"`

	// HeartbeatInterval must match the value gateway/executor use, so
	// domain.Executor.Deadline computes the same bound everywhere.
	HeartbeatInterval string `yaml:"heartbeat_interval"`
}

func Load(filepath string) (*Config, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*Config, error) {
	var out Config
	if err := yaml.Unmarshal(conf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
