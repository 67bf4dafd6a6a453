package qualify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLockConflict is returned by Run when the project is already locked
// by another run or already qualified. The caller surfaces it as a
// conflict; the runner performs no side effects and does not retry.
var ErrLockConflict = errors.New("project qualification is already locked")

// DepartmentFailure is one department's workflow error inside a phase.
type DepartmentFailure struct {
	Department string
	Err        error
}

// PhaseError aggregates every department failure of one phase. Parallel
// phases wait for all siblings before building it, so the message names
// every failing department, not just the first.
type PhaseError struct {
	Phase    string
	Failures []DepartmentFailure
}

func (e *PhaseError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Department, f.Err))
	}
	return fmt.Sprintf("phase %s failed in %d department(s): %s",
		e.Phase, len(e.Failures), strings.Join(parts, "; "))
}

func (e *PhaseError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Departments lists the failing departments in phase declaration order.
func (e *PhaseError) Departments() []string {
	deps := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		deps = append(deps, f.Department)
	}
	return deps
}

// PersistError marks a qualified-store write failure. It is fatal to the
// run exactly like a department workflow failure.
type PersistError struct {
	Department string
	Err        error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist qualified rows for %s: %v", e.Department, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
