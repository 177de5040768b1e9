package domain

import (
	"fmt"
	"time"
)

// ExperimentStatus is the central lifecycle invariant of an Experiment.
// Progression is a strict prefix of Created -> Preparing -> Ready ->
// Running -> Finished; Finished absorbs (spec.md §3 invariant (d)).
type ExperimentStatus string

const (
	Created   ExperimentStatus = "CREATED"
	Preparing ExperimentStatus = "PREPARING"
	Ready     ExperimentStatus = "READY"
	Running   ExperimentStatus = "RUNNING"
	Finished  ExperimentStatus = "FINISHED"
)

func (s ExperimentStatus) String() string { return string(s) }

// order of the lifecycle, Finished last. Used to check monotonicity.
var statusOrder = map[ExperimentStatus]int{
	Created:   0,
	Preparing: 1,
	Ready:     2,
	Running:   3,
	Finished:  4,
}

func AsExperimentStatus(s string) (ExperimentStatus, error) {
	switch ExperimentStatus(s) {
	case Created, Preparing, Ready, Running, Finished:
		return ExperimentStatus(s), nil
	default:
		return "", fmt.Errorf("%q is not an experiment status", s)
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// single step of the lifecycle. Finished -> Finished is also legal
// (terminal absorbs repeated terminal transitions, e.g. cleanup retry).
func (s ExperimentStatus) CanTransitionTo(next ExperimentStatus) bool {
	if s == Finished {
		return next == Finished
	}
	// Any non-terminal status can jump straight to FINISHED: either
	// every deployment's compilation failed while still PREPARING
	// (spec.md §4.7), or the user cancelled the experiment early
	// (spec.md §4.8), which is legal from CREATED/PREPARING/READY/
	// RUNNING alike.
	if next == Finished {
		return true
	}
	so, ok1 := statusOrder[s]
	no, ok2 := statusOrder[next]
	return ok1 && ok2 && no == so+1
}

// Experiment is a user-named bundle of Deployments owned by a user.
type Experiment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`

	Status ExperimentStatus `json:"status"`

	Deployments []Deployment `json:"deployments"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`

	// ExecutionResults is a snapshot of per-deployment results written
	// when the experiment reaches Finished.
	ExecutionResults []DeploymentResult `json:"execution_results,omitempty"`

	// CleanupDone marks that the connector's cleanup (and lock release)
	// has run for this experiment. Cleanup is idempotent, so this is an
	// optimization, not a correctness requirement.
	CleanupDone bool `json:"cleanup_done"`

	// Cancelled is set when the user calls cancel; it survives into
	// Finished as a marker distinct from ordinary completion.
	Cancelled bool `json:"cancelled"`

	Deleted bool `json:"deleted"`
}

// DeploymentResult is the final, byte-identical result bundle attached
// to one deployment of a finished experiment.
type DeploymentResult struct {
	Node      NodeRef `json:"node"`
	Error     *string `json:"error,omitempty"`
	ResultRaw []byte  `json:"result,omitempty"`
}

func (e Experiment) AllDeploymentsPreparedOrFailed() bool {
	for _, d := range e.Deployments {
		if !d.Prepared && !d.Failed() {
			return false
		}
	}
	return true
}

func (e Experiment) AllDeploymentsFailed() bool {
	for _, d := range e.Deployments {
		if !d.Failed() {
			return false
		}
	}
	return len(e.Deployments) > 0
}
