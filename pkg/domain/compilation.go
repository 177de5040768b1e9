package domain

// CompilationStatus tracks one compilation row from claim to settle.
// A nil *CompilationStatus on the row means "not yet claimed" — the
// status-null -> status-running compare-and-set the compiler polls for
// (spec.md §4.3, §5).
type CompilationStatus string

const (
	CompilationRunning CompilationStatus = "RUNNING"
	CompilationSuccess CompilationStatus = "SUCCESS"
	CompilationFailure CompilationStatus = "FAILURE"
)

// Compilation is a work record shared by every deployment whose
// (environment, pipeline, architecture) fingerprint matches
// (spec.md §3, "Compilation idempotence").
type Compilation struct {
	ExperimentID  string `json:"experiment_id"`
	CompilationID string `json:"compilation_id"`

	Status *CompilationStatus `json:"status,omitempty"`

	ResultLog string `json:"result_log,omitempty"`

	Architecture string `json:"architecture"`

	PipelineBlob []byte                 `json:"pipeline_blob"`
	Environment  EnvironmentDefinition  `json:"environment"`

	// Image is the tagged artifact reference once Status is
	// CompilationSuccess: registry/experiment_id-compilation_id:arch.
	Image string `json:"image,omitempty"`

	CreatedAt int64 `json:"created_at"` // unix seconds; used only for creation-order tie-break
}

func (c Compilation) Pending() bool {
	return c.Status == nil
}

func (c Compilation) Succeeded() bool {
	return c.Status != nil && *c.Status == CompilationSuccess
}

func (c Compilation) Failed() bool {
	return c.Status != nil && *c.Status == CompilationFailure
}
