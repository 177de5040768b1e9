package domain

import "encoding/json"

// Result is the tagged union every task settles to: either Ok with a
// JSON-encoded value, or Err with a textual description. There is no
// third state; a task that panics or returns a plain value is lifted
// into one of these two by the executor before it is ever stored.
type Result struct {
	Ok    bool            `json:"ok"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

func OkResult(value json.RawMessage) Result {
	return Result{Ok: true, Value: value}
}

func ErrResult(description string) Result {
	return Result{Ok: false, Error: description}
}

func (r Result) IsErr() bool {
	return !r.Ok
}

// History is the accumulated per-task result across one pipeline run:
// task name -> every Result it produced, in the order produced. A task
// name normally maps to exactly one Result; the slice exists because
// nothing in this model prevents two tasks from sharing a name across
// stages, and deduplication is explicitly not performed (spec.md §3).
type History map[string][]Result

func (h History) Append(task string, r Result) {
	h[task] = append(h[task], r)
}

// Snapshot is the immutable view of prior results a task receives when
// it runs: task name -> most recent Result. Later stages only ever see
// a Snapshot, never the full History, so a task cannot distinguish a
// name reused across stages from one that settled once.
type Snapshot map[string]Result

func (h History) Snapshot() Snapshot {
	s := make(Snapshot, len(h))
	for name, results := range h {
		if len(results) == 0 {
			continue
		}
		s[name] = results[len(results)-1]
	}
	return s
}
