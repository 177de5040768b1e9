// Package director loads the YAML file enumerating enabled connectors
// (spec.md §6, "Configuration"), modeled on the teacher's
// pkg/configs/extras: a custom UnmarshalYAML validates each entry as it
// decodes rather than deferring to a separate sealing pass, since a
// connector config has no nested sub-objects worth a Marshall/trySeal
// split.
package director

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConnectorConfig = errors.New("director: invalid connector config")

// ConnectorConfig is one entry in the connectors list. Options is left
// as a raw yaml.Node so each connector package decodes its own shape
// (pkg/connector/k8s.Options, pkg/connector/mock.Options, ...).
type ConnectorConfig struct {
	Name    string    `yaml:"name"`
	Type    string    `yaml:"type"`
	Options yaml.Node `yaml:"options"`
}

func (c *ConnectorConfig) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		Name    string    `yaml:"name"`
		Type    string    `yaml:"type"`
		Options yaml.Node `yaml:"options"`
	}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("%w: connector name is empty", ErrInvalidConnectorConfig)
	}
	if raw.Type == "" {
		return fmt.Errorf("%w: connector %q has no type", ErrInvalidConnectorConfig, raw.Name)
	}
	c.Name = raw.Name
	c.Type = raw.Type
	c.Options = raw.Options
	return nil
}

type Config struct {
	Connectors []ConnectorConfig `yaml:"connectors"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		Connectors []*ConnectorConfig `yaml:"connectors"`
	}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, conn := range raw.Connectors {
		if seen[conn.Name] {
			return fmt.Errorf("%w: duplicate connector name %q", ErrInvalidConnectorConfig, conn.Name)
		}
		seen[conn.Name] = true
		c.Connectors = append(c.Connectors, *conn)
	}
	return nil
}

// Load reads and validates a connector registry file.
func Load(filepath string) (Config, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	cfg := Config{}
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
