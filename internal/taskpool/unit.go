package taskpool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WorkUnit is one schedulable piece of department work. Payload is opaque
// to the pool; only the invoker interprets it.
type WorkUnit struct {
	ID         uuid.UUID
	Department string
	Kind       string
	Payload    any
	Priority   int
	EnqueuedAt time.Time
}

type ActiveState string

const (
	StateRunning    ActiveState = "running"
	StateCompleting ActiveState = "completing"
)

// ActiveWork tracks one in-flight unit and the ephemeral worker identity
// executing it.
type ActiveWork struct {
	WorkerID   uuid.UUID
	UnitID     uuid.UUID
	Department string
	Kind       string
	Priority   int
	StartedAt  time.Time
	State      ActiveState
}

// Invoker executes a department workflow for one unit. Implementations
// own their own timeouts; the pool never cancels an in-flight invocation.
type Invoker interface {
	Invoke(ctx context.Context, unit WorkUnit) (any, error)
}

type settleResult struct {
	output any
	err    error
}
