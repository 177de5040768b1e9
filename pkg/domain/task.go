package domain

import "encoding/json"

// Task is the smallest unit of work in a pipeline. It carries a
// caller-provided initialization payload, an entrypoint naming the code
// to run on the worker, and zero or more shell commands declared as
// environment prerequisites.
//
// Two Tasks of the same class contribute their Prerequisites
// independently: the compiler does not deduplicate commands across
// tasks (spec.md §3).
type Task struct {
	Name string `json:"name"`

	// Entrypoint names a function registered in the task library that
	// the executor invokes with Init and the prior-results Snapshot.
	Entrypoint string `json:"entrypoint"`

	// Init is passed verbatim to the entrypoint; its shape is owned by
	// the task library, not by the director.
	Init json.RawMessage `json:"init,omitempty"`

	// Prerequisites are shell commands the environment definition must
	// run before this task can execute.
	Prerequisites []string `json:"prerequisites,omitempty"`
}

// Stage is an unordered bag of Tasks. All Tasks in a Stage run
// concurrently and must all settle before the next Stage begins.
type Stage struct {
	Tasks []Task `json:"tasks"`
}

func (s Stage) Names() []string {
	names := make([]string, len(s.Tasks))
	for i, t := range s.Tasks {
		names[i] = t.Name
	}
	return names
}
