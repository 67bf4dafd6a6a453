package qualify

import (
	"context"

	"github.com/google/uuid"
)

// WorkflowRunner executes one department workflow and blocks until it
// settles. Implementations route through the scheduler so qualification
// work competes for pool capacity like any other department work.
type WorkflowRunner interface {
	RunWorkflow(ctx context.Context, req WorkflowRequest) (any, error)
}

// IntakeSource reads the raw gathered rows for one department.
type IntakeSource interface {
	FetchIntakeRows(ctx context.Context, projectID uuid.UUID, department string) ([]IntakeRow, error)
}

// QualifiedSink writes a department's vetted rows. A write failure is
// fatal to the run.
type QualifiedSink interface {
	PersistQualifiedRows(ctx context.Context, projectID, runID uuid.UUID, rows []QualifiedRow) error
}

// KnowledgeIngester pushes the full qualified dataset into the knowledge
// base after the final phase succeeds.
type KnowledgeIngester interface {
	IngestToKnowledgeBase(ctx context.Context, projectID, runID uuid.UUID, rows []QualifiedRow) error
}

// ResourceLock serializes runs per project. Acquire must be atomic
// against concurrent attempts; a held or spent lock yields
// ErrLockConflict.
type ResourceLock interface {
	AcquireResourceLock(ctx context.Context, projectID, runID uuid.UUID) error
	ReleaseResourceLock(ctx context.Context, projectID, runID uuid.UUID, finalStatus RunStatus) error
}

// ErrorRecorder persists an operator-visible failure record. Recording
// errors are logged, never allowed to mask the run's own failure.
type ErrorRecorder interface {
	RecordDurableError(ctx context.Context, projectID, runID uuid.UUID, phase string, cause error) error
}

// RunStore persists run state transitions and the project promotion.
type RunStore interface {
	CreateRun(ctx context.Context, projectID, runID uuid.UUID) error
	MarkRunRunning(ctx context.Context, projectID, runID uuid.UUID, phase string) error
	MarkRunPhase(ctx context.Context, runID uuid.UUID, phase string) error
	MarkRunFailed(ctx context.Context, projectID, runID uuid.UUID, phase string, cause error) error
	MarkRunSucceeded(ctx context.Context, projectID, runID uuid.UUID, qualified int) error
	PromoteProject(ctx context.Context, projectID, runID uuid.UUID) error
	LatestRun(ctx context.Context, projectID uuid.UUID) (*RunRecord, error)
}

// Notifier publishes run progress. Optional; a nil Notifier disables
// notifications.
type Notifier interface {
	NotifyRunEvent(ctx context.Context, event Event)
}

// Deps are the collaborators a Runner is wired with. All but Notify are
// required.
type Deps struct {
	Workflows WorkflowRunner
	Intake    IntakeSource
	Sink      QualifiedSink
	Knowledge KnowledgeIngester
	Lock      ResourceLock
	Errors    ErrorRecorder
	Runs      RunStore
	Notify    Notifier
}

func (d Deps) validate() error {
	switch {
	case d.Workflows == nil:
		return errMissingDep("Workflows")
	case d.Intake == nil:
		return errMissingDep("Intake")
	case d.Sink == nil:
		return errMissingDep("Sink")
	case d.Knowledge == nil:
		return errMissingDep("Knowledge")
	case d.Lock == nil:
		return errMissingDep("Lock")
	case d.Errors == nil:
		return errMissingDep("Errors")
	case d.Runs == nil:
		return errMissingDep("Runs")
	}
	return nil
}

type errMissingDep string

func (e errMissingDep) Error() string {
	return "qualify: missing required dependency " + string(e)
}
