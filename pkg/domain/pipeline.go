package domain

// EnvironmentDefinition describes how to build the per-node execution
// environment for a pipeline: either a pre-built container image used
// directly, or a base image plus shell commands to run on top of it.
// Exactly one of Image-only or Image+Commands applies; Commands without
// Image is also valid (the compiler picks a default base).
type EnvironmentDefinition struct {
	// Image is a container image reference. If Commands is empty, the
	// compiler uses this image directly with the pipeline mounted in,
	// no build step beyond that.
	Image string `json:"image,omitempty"`

	// Commands are shell commands describing how the environment is
	// prepared on top of Image. They are part of the compilation
	// fingerprint, but pkg/compiler does not run them: the built image is
	// Image (or the compiler's default base image, if Image is empty)
	// plus the executor/pipeline layer.
	Commands []string `json:"commands,omitempty"`
}

// Pipeline is an ordered sequence of Stages, plus the metadata the
// executor and compiler need to run and package it.
type Pipeline struct {
	// ID is a stable identifier for this pipeline, assigned by the
	// client SDK.
	ID string `json:"id"`

	Stages []Stage `json:"stages"`

	Environment EnvironmentDefinition `json:"environment"`

	// ReportResults controls whether the executor POSTs its final
	// result to the gateway. When false, the executor still runs the
	// pipeline to completion but never calls /result; the experiment
	// finishes via the keepalive deadline instead (spec.md §9(a)).
	ReportResults bool `json:"report_results"`

	// KeepAliveTimeoutMinutes, if set, is the outer wall-clock envelope
	// for the deployment this pipeline runs in: the processor tears the
	// executor down as failed once this elapses, even if heartbeats
	// keep arriving.
	KeepAliveTimeoutMinutes *int `json:"keep_alive_timeout_minutes,omitempty"`
}

func (p Pipeline) StageCount() int {
	return len(p.Stages)
}
