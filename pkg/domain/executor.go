package domain

import "time"

// ExecutorState is the executor's own state machine, piggybacked onto
// heartbeats so the gateway (and, through it, the processor) can see
// where an executor is without waiting for its final result.
type ExecutorState string

const (
	ExecutorLoading    ExecutorState = "LOADING"
	ExecutorExecuting  ExecutorState = "EXECUTING"
	ExecutorReporting  ExecutorState = "REPORTING"
	ExecutorTerminated ExecutorState = "TERMINATED"
	ExecutorFailed     ExecutorState = "FAILED"
)

// Executor is the (experiment_id, executor_id) row created at start and
// updated by the gateway (heartbeat, result) and the processor
// (liveness failure).
type Executor struct {
	ExperimentID string `json:"experiment_id"`
	ExecutorID   string `json:"executor_id"`

	Node      NodeRef `json:"node"`
	Connector string  `json:"connector"`

	PipelineBlob []byte `json:"pipeline_blob"`
	ResultBlob   []byte `json:"result_blob,omitempty"`

	KeepaliveTime time.Time `json:"keepalive_time"`

	Error *string `json:"error,omitempty"`

	// Finished is set exactly once, by the first /result POST this
	// executor makes; later POSTs are ignored (spec.md §4.5).
	Finished bool `json:"finished"`

	State ExecutorState `json:"state"`

	StartedAt time.Time `json:"started_at"`

	// KeepAliveTimeoutMinutes is copied from the deployment at start, so
	// the processor's deadline computation doesn't need to join back to
	// the deployment row on every tick.
	KeepAliveTimeoutMinutes *int `json:"keep_alive_timeout_minutes,omitempty"`
}

// Deadline returns the moment past which this executor is terminal, per
// spec.md §4.7: KeepaliveTime + max(2*heartbeatInterval, 60s), or, if
// KeepAliveTimeoutMinutes is set, StartedAt + that many minutes, a
// wall-clock bound that heartbeats do not extend.
func (e Executor) Deadline(heartbeatInterval time.Duration) time.Time {
	if e.KeepAliveTimeoutMinutes != nil {
		return e.StartedAt.Add(time.Duration(*e.KeepAliveTimeoutMinutes) * time.Minute)
	}
	floor := 2 * heartbeatInterval
	if floor < 60*time.Second {
		floor = 60 * time.Second
	}
	return e.KeepaliveTime.Add(floor)
}

func (e Executor) Live(now time.Time, heartbeatInterval time.Duration) bool {
	if e.Finished {
		return true
	}
	return now.Before(e.Deadline(heartbeatInterval))
}
