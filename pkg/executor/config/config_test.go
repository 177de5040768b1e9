package config_test

import (
	"os"
	"testing"

	"github.com/netunicorn/netunicorn/pkg/executor/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvGatewayEndpoint,
		config.EnvExperimentID,
		config.EnvExecutorID,
		config.EnvGatewayToken,
		config.EnvHeartbeat,
	} {
		if err := os.Unsetenv(k); err != nil {
			t.Fatal(err)
		}
	}
}

func setAllRequired(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvGatewayEndpoint, "http://gateway:8000")
	t.Setenv(config.EnvExperimentID, "exp-1")
	t.Setenv(config.EnvExecutorID, "exec-1")
	t.Setenv(config.EnvGatewayToken, "tok-1")
}

func TestLoadRequiresAllVariables(t *testing.T) {
	clearEnv(t)

	for name, setup := range map[string]func(t *testing.T){
		"all missing": func(t *testing.T) {},
		"endpoint only": func(t *testing.T) {
			t.Setenv(config.EnvGatewayEndpoint, "http://gateway:8000")
		},
		"missing token": func(t *testing.T) {
			t.Setenv(config.EnvGatewayEndpoint, "http://gateway:8000")
			t.Setenv(config.EnvExperimentID, "exp-1")
			t.Setenv(config.EnvExecutorID, "exec-1")
		},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			setup(t)
			if _, err := config.Load(); err == nil {
				t.Error("expected an error for incomplete configuration")
			}
		})
	}
}

func TestLoadDefaultsHeartbeatOn(t *testing.T) {
	clearEnv(t)
	setAllRequired(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Heartbeat {
		t.Error("expected heartbeat to default to true")
	}
	if cfg.HeartbeatInterval != config.DefaultHeartbeatInterval {
		t.Errorf("expected default heartbeat interval, got %s", cfg.HeartbeatInterval)
	}
}

func TestLoadHeartbeatFalse(t *testing.T) {
	clearEnv(t)
	setAllRequired(t)
	t.Setenv(config.EnvHeartbeat, "false")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Heartbeat {
		t.Error("expected heartbeat to be disabled")
	}
}

func TestLoadHeartbeatInvalid(t *testing.T) {
	clearEnv(t)
	setAllRequired(t)
	t.Setenv(config.EnvHeartbeat, "not-a-bool")

	if _, err := config.Load(); err == nil {
		t.Error("expected an error for an invalid heartbeat value")
	}
}

func TestLoadPopulatesFields(t *testing.T) {
	clearEnv(t)
	setAllRequired(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GatewayEndpoint != "http://gateway:8000" {
		t.Errorf("unexpected gateway endpoint: %s", cfg.GatewayEndpoint)
	}
	if cfg.ExperimentID != "exp-1" || cfg.ExecutorID != "exec-1" || cfg.GatewayToken != "tok-1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
