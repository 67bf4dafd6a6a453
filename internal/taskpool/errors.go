package taskpool

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrShuttingDown is returned by Enqueue and EnqueueWait once a drain has
// begun. Callers must not retry against the same pool.
var ErrShuttingDown = errors.New("task pool is shutting down")

// WorkUnitError wraps a single unit's workflow failure. It is local to
// the unit: the pool logs it, releases the slot and keeps serving the
// queue.
type WorkUnitError struct {
	UnitID     uuid.UUID
	Department string
	Err        error
}

func (e *WorkUnitError) Error() string {
	return fmt.Sprintf("work unit %s (department %s): %v", e.UnitID, e.Department, e.Err)
}

func (e *WorkUnitError) Unwrap() error { return e.Err }

func errFromRecover(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
