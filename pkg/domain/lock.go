package domain

// Lock is an exclusive claim on a (node, connector) pair by one
// experiment's owning username. A node appears in at most one Lock row
// at a time; ownership transfers by deleting the row (spec.md §3
// invariant (c)).
type Lock struct {
	Node      NodeRef `json:"node"`
	Username  string  `json:"username"`
	Experiment string `json:"experiment_id"`
}

// LockConflict describes one node that could not be claimed because it
// is already held, surfaced to the user verbatim (spec.md §7.4).
type LockConflict struct {
	Node     NodeRef `json:"node"`
	HeldBy   string  `json:"held_by"`
}
