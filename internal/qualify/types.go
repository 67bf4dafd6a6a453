package qualify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusLocked    RunStatus = "locked"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// IntakeRow is one raw gathered item handed to a department workflow.
type IntakeRow struct {
	ID         uuid.UUID       `json:"id"`
	Department string          `json:"department"`
	Kind       string          `json:"kind"`
	Summary    string          `json:"summary"`
	Content    json.RawMessage `json:"content"`
}

// QualifiedRow is one vetted output row a workflow produced. CrossRefs
// point at intake rows (possibly from other departments) the content was
// validated against.
type QualifiedRow struct {
	Department   string          `json:"department"`
	Phase        string          `json:"phase"`
	SourceItemID *uuid.UUID      `json:"source_item_id,omitempty"`
	Content      json.RawMessage `json:"content"`
	CrossRefs    []uuid.UUID     `json:"cross_refs,omitempty"`
	Score        float64         `json:"score"`
}

// DepartmentOutput is the settled result of one department workflow
// within a phase run.
type DepartmentOutput struct {
	Department string         `json:"department"`
	Qualified  []QualifiedRow `json:"qualified"`
	Notes      string         `json:"notes,omitempty"`
}

// WorkflowPayload is the opaque payload the runner hands to the workflow
// collaborator for one department. Prior holds earlier outputs and is
// populated only in sequential phases; parallel siblings run isolated.
type WorkflowPayload struct {
	ProjectID  uuid.UUID          `json:"project_id"`
	RunID      uuid.UUID          `json:"run_id"`
	Phase      string             `json:"phase"`
	Department string             `json:"department"`
	Intake     []IntakeRow        `json:"intake"`
	Prior      []DepartmentOutput `json:"prior,omitempty"`
}

// WorkflowRequest is what the runner submits to the execution
// collaborator; it stays agnostic of pool and scheduler types.
type WorkflowRequest struct {
	Department string
	Kind       string
	Payload    any
}

// RunRecord is the persisted view of one pipeline run.
type RunRecord struct {
	RunID      uuid.UUID
	ProjectID  uuid.UUID
	Status     RunStatus
	Phase      string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunStatusView is the caller-facing status report for a project. Status
// is RunStatusIdle when the project has never been run.
type RunStatusView struct {
	ProjectID  uuid.UUID  `json:"project_id"`
	RunID      *uuid.UUID `json:"run_id,omitempty"`
	Status     RunStatus  `json:"status"`
	Phase      string     `json:"phase,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunResult is returned by a successful Run.
type RunResult struct {
	RunID     uuid.UUID `json:"run_id"`
	ProjectID uuid.UUID `json:"project_id"`
	Status    RunStatus `json:"status"`
	Qualified int       `json:"qualified"`
}

type EventKind string

const (
	EventRunStarted    EventKind = "run_started"
	EventPhaseStarted  EventKind = "phase_started"
	EventPhaseFinished EventKind = "phase_finished"
	EventRunSucceeded  EventKind = "run_succeeded"
	EventRunFailed     EventKind = "run_failed"
)

// Event is a progress notification emitted while a run executes.
type Event struct {
	Kind      EventKind `json:"kind"`
	ProjectID uuid.UUID `json:"project_id"`
	RunID     uuid.UUID `json:"run_id"`
	Phase     string    `json:"phase,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}
