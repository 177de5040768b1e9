package connector

import (
	"fmt"

	"github.com/netunicorn/netunicorn/pkg/config/director"
	"github.com/netunicorn/netunicorn/pkg/connector/k8s"
	"github.com/netunicorn/netunicorn/pkg/connector/mock"
)

// Registry holds every connector named in the YAML connector config,
// built once at boot the same way cmd/knitd_backend/main.go builds one
// fixed KnitCluster -- generalized here to N named connectors.
type Registry struct {
	connectors map[string]Connector
}

// Build constructs a Registry from cfg, instantiating one connector per
// entry. Unknown connector types are a boot-time error.
func Build(cfg director.Config) (*Registry, error) {
	r := &Registry{connectors: map[string]Connector{}}
	for _, c := range cfg.Connectors {
		conn, err := build(c)
		if err != nil {
			return nil, fmt.Errorf("connector %q: %w", c.Name, err)
		}
		r.connectors[c.Name] = conn
	}
	return r, nil
}

func build(cfg director.ConnectorConfig) (Connector, error) {
	switch cfg.Type {
	case "k8s":
		var opts k8s.Options
		if err := cfg.Options.Decode(&opts); err != nil {
			return nil, err
		}
		return k8s.New(cfg.Name, opts)
	case "mock":
		return mock.New(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown connector type %q", cfg.Type)
	}
}

func (r *Registry) Get(name string) (Connector, bool) {
	c, ok := r.connectors[name]
	return c, ok
}

func (r *Registry) All() []Connector {
	out := make([]Connector, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c)
	}
	return out
}
