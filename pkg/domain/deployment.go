package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Deployment binds one Pipeline to one Node within an Experiment.
type Deployment struct {
	ExperimentID string `json:"experiment_id"`

	Node NodeRef `json:"node"`

	// PipelineID mirrors the bound Pipeline's ID for quick lookups; the
	// full pipeline travels as Pipeline (opaque JSON, spec.md §6).
	PipelineID string `json:"pipeline_id"`
	Pipeline   []byte `json:"pipeline"`

	Environment EnvironmentDefinition `json:"environment"`

	// Architecture is the owning node's architecture at the time this
	// deployment was created, captured once so later compilation
	// fingerprint lookups (spec.md §3, "Compilation idempotence") don't
	// need to re-query the connector for a value that shouldn't change
	// under a running experiment.
	Architecture string `json:"architecture"`

	// Prepared is true iff this deployment's compilation recorded
	// success (spec.md §3 invariant (e)).
	Prepared bool `json:"prepared"`

	// ExecutorID is filled in by the infrastructure service at start.
	ExecutorID *string `json:"executor_id,omitempty"`

	// Error is filled in on any terminal failure of this deployment:
	// compilation failure, connector deploy/start failure, or liveness
	// failure surfaced from the executor record.
	Error *string `json:"error,omitempty"`

	KeepAliveTimeoutMinutes *int `json:"keep_alive_timeout_minutes,omitempty"`
}

func (d Deployment) Failed() bool {
	return d.Error != nil
}

// CompilationFingerprint is what the compilation id is derived from:
// environment + pipeline bytes + architecture. Two deployments that
// produce the same fingerprint share one compilation row and one build
// (spec.md §3, "Compilation idempotence").
type CompilationFingerprint struct {
	Environment  EnvironmentDefinition
	Pipeline     []byte
	Architecture string
}

// ID derives the compilation id shared by every deployment whose
// (environment, pipeline, architecture) triple is identical, so the
// compiler and processor can both recompute it without a lookup table.
func (fp CompilationFingerprint) ID() (string, error) {
	blob, err := json.Marshal(fp)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}
