package compose

import (
	"errors"
	"fmt"

	"github.com/3leaps/ugcreel/pkg/job"
)

// Stage names one step of the composition state machine.
type Stage string

const (
	StageLoadJob         Stage = "LOAD_JOB"
	StageResolveSources  Stage = "RESOLVE_SOURCES"
	StageCreatePrimary   Stage = "CREATE_PRIMARY_ASSET"
	StageAwaitPrimary    Stage = "AWAIT_PRIMARY_READY"
	StageCreateSecondary Stage = "CREATE_SECONDARY_ASSET"
	StageAwaitSecondary  Stage = "AWAIT_SECONDARY_READY"
	StageCreateCombined  Stage = "CREATE_COMBINED_ASSET"
	StageAwaitCombined   Stage = "AWAIT_COMBINED_READY"
	StagePersistSuccess  Stage = "PERSIST_SUCCESS"
	StagePersistFailure  Stage = "PERSIST_FAILURE"
)

var stageLabels = map[Stage]string{
	StageLoadJob:         "load job",
	StageResolveSources:  "resolve sources",
	StageCreatePrimary:   "create primary asset",
	StageAwaitPrimary:    "await primary asset",
	StageCreateSecondary: "create secondary asset",
	StageAwaitSecondary:  "await secondary asset",
	StageCreateCombined:  "create combined asset",
	StageAwaitCombined:   "await combined asset",
	StagePersistSuccess:  "persist success",
	StagePersistFailure:  "persist failure",
}

// Label is the human-readable stage name used in error messages.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// StageError attributes a failure to the step that raised it.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage.Label(), e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed terminal write. The job is left in
// processing and needs operator attention.
type PersistenceError struct {
	JobID  string
	Status job.Status

	// Cause is the workflow error being recorded, nil for a success write.
	Cause error

	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s state for job %s: %v", e.Status, e.JobID, e.Err)
}

// Unwrap returns the store error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError returns true if err contains a *PersistenceError.
func IsPersistenceError(err error) bool {
	var perr *PersistenceError
	return errors.As(err, &perr)
}

// FailedStage returns the stage that raised err, or "" if unknown.
func FailedStage(err error) Stage {
	var serr *StageError
	if errors.As(err, &serr) {
		return serr.Stage
	}
	return ""
}
