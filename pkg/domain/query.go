package domain

import "time"

// ExperimentFindQuery narrows ListExperiments; empty fields are ignored
// and do not narrow results, matching the teacher's RunFindQuery idiom.
type ExperimentFindQuery struct {
	Username     string
	Status       []ExperimentStatus
	UpdatedSince *time.Time
	UpdatedUntil *time.Time
	IncludeDeleted bool
}
