// Package gateway loads cmd/gateway's YAML configuration, modeled on
// the teacher's pkg/configs/frontend.
package gateway

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort string `yaml:"server_port"`
	DBURI      string `yaml:"db_uri"`

	// TokenSigningKeyEnv names the environment variable holding the HS256
	// secret pkg/gateway/token signs and verifies NETUNICORN_GATEWAY_TOKEN
	// with, mirroring the teacher's KeychainsConfig.SignKeyForImportToken
	// indirection (a name pointing at a secret, not the secret itself).
	TokenSigningKeyEnv string `yaml:"token_signing_key_env"`

	// TokenTTL is the executor token lifetime, parsed with time.ParseDuration.
	TokenTTL string `yaml:"token_ttl"`
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
