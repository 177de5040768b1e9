// Package config loads the executor's environment-injected
// configuration (spec.md §4.6): the connector writes these variables
// into the container before start, the same contract pkg/infra's
// Start callback builds (pkg/mediator/handlers/start.go). Missing
// required variables are fatal immediately, mirroring the director
// binaries' fatal-on-bad-config idiom (cmd/gateway/main.go,
// cmd/mediator/main.go both panic on bad config rather than limping on).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvGatewayEndpoint = "NETUNICORN_GATEWAY_ENDPOINT"
	EnvExperimentID    = "NETUNICORN_EXPERIMENT_ID"
	EnvExecutorID      = "NETUNICORN_EXECUTOR_ID"
	EnvGatewayToken    = "NETUNICORN_GATEWAY_TOKEN"
	EnvHeartbeat       = "NETUNICORN_HEARTBEAT"
)

// DefaultHeartbeatInterval is H in spec.md §4.6 step 2.
const DefaultHeartbeatInterval = 30 * time.Second

type Config struct {
	GatewayEndpoint string
	ExperimentID    string
	ExecutorID      string
	GatewayToken    string

	// Heartbeat toggles the heartbeat goroutine. Defaults to true;
	// only an explicit "false" turns it off.
	Heartbeat bool

	HeartbeatInterval time.Duration
}

// Load reads the NETUNICORN_* environment variables and returns a
// fatal, descriptive error for any required one that is missing.
func Load() (Config, error) {
	cfg := Config{
		GatewayEndpoint:   os.Getenv(EnvGatewayEndpoint),
		ExperimentID:      os.Getenv(EnvExperimentID),
		ExecutorID:        os.Getenv(EnvExecutorID),
		GatewayToken:      os.Getenv(EnvGatewayToken),
		Heartbeat:         true,
		HeartbeatInterval: DefaultHeartbeatInterval,
	}

	var missing []string
	if cfg.GatewayEndpoint == "" {
		missing = append(missing, EnvGatewayEndpoint)
	}
	if cfg.ExperimentID == "" {
		missing = append(missing, EnvExperimentID)
	}
	if cfg.ExecutorID == "" {
		missing = append(missing, EnvExecutorID)
	}
	if cfg.GatewayToken == "" {
		missing = append(missing, EnvGatewayToken)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("executor: missing required environment variable(s): %v", missing)
	}

	if raw := os.Getenv(EnvHeartbeat); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("executor: %s must be a bool, got %q: %w", EnvHeartbeat, raw, err)
		}
		cfg.Heartbeat = v
	}

	return cfg, nil
}
