package domain

import "fmt"

// ErrMissing is returned when a store lookup finds no row for the given
// identity. Mirrors the teacher's pkg/db/postgres/errors.Missing.
type ErrMissing struct {
	Table    string
	Identity string
}

func (e ErrMissing) Error() string {
	return fmt.Sprintf("%s: not found: %s", e.Table, e.Identity)
}

// ErrInvalidTransition is returned when a requested status change is
// not a legal single step of the relevant lifecycle.
type ErrInvalidTransition struct {
	Entity string
	From   string
	To     string
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("%s: cannot transition from %s to %s", e.Entity, e.From, e.To)
}

// ErrAlreadyLocked is returned by ClaimLocks when one or more requested
// nodes are already held by another experiment.
type ErrAlreadyLocked struct {
	Conflicts []LockConflict
}

func (e ErrAlreadyLocked) Error() string {
	return fmt.Sprintf("%d node(s) already locked", len(e.Conflicts))
}

// ErrNameConflict is returned when a user tries to create an experiment
// whose (username, name) pair already exists (spec.md §3 invariant (a)).
type ErrNameConflict struct {
	Username string
	Name     string
}

func (e ErrNameConflict) Error() string {
	return fmt.Sprintf("experiment %q already exists for user %q", e.Name, e.Username)
}

// ErrDispatchAmbiguous describes a node missing a property the
// dispatcher needs (spec.md §9(b)). No code path in this repository
// returns it: prepare records an empty architecture for such a node and
// enqueues its compilation anyway.
type ErrDispatchAmbiguous struct {
	Node     NodeRef
	Property string
}

func (e ErrDispatchAmbiguous) Error() string {
	return fmt.Sprintf("node %s/%s is missing property %q needed for dispatch", e.Node.Connector, e.Node.Name, e.Property)
}
