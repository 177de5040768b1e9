// Package mediator loads cmd/mediator's YAML configuration, modeled on
// the teacher's pkg/configs/frontend: a plain exported struct with yaml
// tags, no sealing step, since the mediator doesn't compose nested
// cluster objects the way the backend does.
package mediator

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ServerPort is the port echo listens on, e.g. "8000" (cmd/mediator
	// listens on ":" + ServerPort).
	ServerPort string `yaml:"server_port"`

	// DBURI is the Postgres connection string for pkg/store/postgres.
	DBURI string `yaml:"db_uri"`

	// GatewayRoot is the externally reachable base URL handed to
	// executors as NETUNICORN_GATEWAY_ENDPOINT.
	GatewayRoot string `yaml:"gateway_root"`

	// ConnectorConfigPath points at the YAML file pkg/config/director
	// loads to build the connector registry.
	ConnectorConfigPath string `yaml:"connector_config_path"`

	// AuthEndpoint is the external authenticator the mediator consults
	// for BasicAuth pass-through (spec.md §1/§7).
	AuthEndpoint string `yaml:"auth_endpoint"`

	// HeartbeatInterval is the period executors are expected to post
	// heartbeats at. cmd/mediator does not read it; the processor takes
	// its liveness deadline from pkg/config/processor's own
	// HeartbeatInterval (spec.md §4.7).
	HeartbeatInterval string `yaml:"heartbeat_interval"`

	// TokenSigningKeyEnv must name the same secret the gateway signs
	// with (pkg/config/gateway.Config.TokenSigningKeyEnv), since the
	// mediator mints each executor's NETUNICORN_GATEWAY_TOKEN at
	// start_executors time and the gateway later verifies it.
	TokenSigningKeyEnv string `yaml:"token_signing_key_env"`
	TokenTTL           string `yaml:"token_ttl"`
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
