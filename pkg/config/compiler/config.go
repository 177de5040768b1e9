// Package compiler loads cmd/compiler's YAML configuration.
package compiler

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBURI string `yaml:"db_uri"`

	// Registry is the OCI registry root images are pushed to, e.g.
	// "registry.example.com/netunicorn".
	Registry string `yaml:"registry"`

	// MaxConcurrentBuilds bounds the compiler's build worker pool
	// (spec.md §5).
	MaxConcurrentBuilds int `yaml:"max_concurrent_builds"`

	// PollInterval is how often the compiler calls
	// store.Compilations().ClaimPending when idle, e.g. "2s".
	PollInterval string `yaml:"poll_interval"`

	// ExecutorBinaryPath is the statically-linked cmd/executor binary
	// baked into every built image (spec.md §4.3).
	ExecutorBinaryPath string `yaml:"executor_binary_path"`

	// DefaultBaseImage is used when an EnvironmentDefinition carries
	// shell Commands but no Image.
	DefaultBaseImage string `yaml:"default_base_image"`
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
