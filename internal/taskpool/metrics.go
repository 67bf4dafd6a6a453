package taskpool

import (
	"time"

	"github.com/google/uuid"
)

// Metrics is a point-in-time snapshot of pool health.
type Metrics struct {
	CapacityLimit   int           `json:"capacity_limit"`
	ActiveCount     int           `json:"active_count"`
	QueuedCount     int           `json:"queued_count"`
	CompletedCount  int64         `json:"completed_count"`
	FailedCount     int64         `json:"failed_count"`
	AvgUnitDuration time.Duration `json:"avg_unit_duration_ns"`
	Utilization     float64       `json:"utilization"`
	Draining        bool          `json:"draining"`
}

// Load is the per-department pressure the scheduler feeds into priority
// computation.
type Load struct {
	Active int `json:"active"`
	Queued int `json:"queued"`
}

func (l Load) Total() int { return l.Active + l.Queued }

type PendingSummary struct {
	UnitID     uuid.UUID `json:"unit_id"`
	Department string    `json:"department"`
	Kind       string    `json:"kind"`
	Priority   int       `json:"priority"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type ActiveSummary struct {
	WorkerID   uuid.UUID   `json:"worker_id"`
	UnitID     uuid.UUID   `json:"unit_id"`
	Department string      `json:"department"`
	Kind       string      `json:"kind"`
	Priority   int         `json:"priority"`
	State      ActiveState `json:"state"`
	StartedAt  time.Time   `json:"started_at"`
}

// QueueStatus lists in-flight and pending units, pending in dispatch
// order.
type QueueStatus struct {
	Capacity int              `json:"capacity"`
	Draining bool             `json:"draining"`
	Active   []ActiveSummary  `json:"active"`
	Pending  []PendingSummary `json:"pending"`
}
