package qualify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

// finalizeStage names the post-phase work (knowledge base ingest and
// promotion) in run records and failure reports.
const finalizeStage = "finalize"

// Runner owns the pipeline run state machine for one plan. It is safe
// for concurrent use; per-project mutual exclusion comes from the
// injected ResourceLock, not from the Runner itself.
type Runner struct {
	plan Plan
	deps Deps
	log  *logger.Logger
	orch *orchestrator
}

func NewRunner(plan Plan, deps Deps, log *logger.Logger) (*Runner, error) {
	if err := ValidatePlan(plan); err != nil {
		return nil, fmt.Errorf("qualify: invalid plan: %w", err)
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	runLog := log.With("service", "QualifyRunner")
	return &Runner{
		plan: plan,
		deps: deps,
		log:  runLog,
		orch: &orchestrator{deps: deps, log: runLog},
	}, nil
}

func (r *Runner) Plan() Plan { return r.plan }

/*
Run executes the full qualification plan for one project.
What it does:
  - Acquires the project's resource lock; a held lock returns
    ErrLockConflict with no side effects and no retry.
  - Creates the run record (locked), flips it to running, then executes
    the phases in plan order, carrying earlier phases' outputs forward.
  - After the final phase, ingests the qualified dataset into the
    knowledge base, promotes the project and marks the run succeeded.
  - On any phase, persistence or finalization failure the run stops
    where it is, records a durable error and transitions to failed.
    Later phases never execute.
  - Always releases the lock with the run's terminal status.
*/
func (r *Runner) Run(ctx context.Context, projectID uuid.UUID) (*RunResult, error) {
	runID := uuid.New()

	if err := r.deps.Lock.AcquireResourceLock(ctx, projectID, runID); err != nil {
		return nil, err
	}
	finalStatus := RunStatusFailed
	defer func() {
		if err := r.deps.Lock.ReleaseResourceLock(context.Background(), projectID, runID, finalStatus); err != nil {
			r.log.Error("release resource lock failed",
				"project_id", projectID.String(),
				"run_id", runID.String(),
				"error", err,
			)
		}
	}()

	log := r.log.With("project_id", projectID.String(), "run_id", runID.String())
	log.Info("qualification run starting", "plan", r.plan.Name, "phases", len(r.plan.Phases))

	if err := r.deps.Runs.CreateRun(ctx, projectID, runID); err != nil {
		return nil, r.failRun(projectID, runID, "", fmt.Errorf("create run record: %w", err))
	}
	r.notify(ctx, Event{Kind: EventRunStarted, ProjectID: projectID, RunID: runID})

	if err := r.deps.Runs.MarkRunRunning(ctx, projectID, runID, r.plan.Phases[0].Name); err != nil {
		return nil, r.failRun(projectID, runID, "", fmt.Errorf("mark run running: %w", err))
	}

	var prior []DepartmentOutput
	qualified := 0
	for i, phase := range r.plan.Phases {
		if err := ctx.Err(); err != nil {
			return nil, r.failRun(projectID, runID, phase.Name, fmt.Errorf("run canceled before phase %s: %w", phase.Name, err))
		}
		if i > 0 {
			if err := r.deps.Runs.MarkRunPhase(ctx, runID, phase.Name); err != nil {
				return nil, r.failRun(projectID, runID, phase.Name, fmt.Errorf("record phase transition: %w", err))
			}
		}
		r.notify(ctx, Event{Kind: EventPhaseStarted, ProjectID: projectID, RunID: runID, Phase: phase.Name})

		outputs, err := r.orch.runPhase(ctx, projectID, runID, phase, prior)
		if err != nil {
			return nil, r.failRun(projectID, runID, phase.Name, err)
		}

		rows := 0
		for _, out := range outputs {
			rows += len(out.Qualified)
		}
		qualified += rows
		prior = append(prior, outputs...)

		r.notify(ctx, Event{
			Kind:      EventPhaseFinished,
			ProjectID: projectID,
			RunID:     runID,
			Phase:     phase.Name,
			Message:   fmt.Sprintf("%d rows qualified", rows),
		})
		log.Info("phase complete", "phase", phase.Name, "mode", string(phase.Mode), "qualified_rows", rows)
	}

	if err := r.deps.Runs.MarkRunPhase(ctx, runID, finalizeStage); err != nil {
		return nil, r.failRun(projectID, runID, finalizeStage, fmt.Errorf("record phase transition: %w", err))
	}
	allRows := make([]QualifiedRow, 0, qualified)
	for _, out := range prior {
		allRows = append(allRows, out.Qualified...)
	}
	if err := r.deps.Knowledge.IngestToKnowledgeBase(ctx, projectID, runID, allRows); err != nil {
		return nil, r.failRun(projectID, runID, finalizeStage, fmt.Errorf("knowledge base ingest: %w", err))
	}
	if err := r.deps.Runs.PromoteProject(ctx, projectID, runID); err != nil {
		return nil, r.failRun(projectID, runID, finalizeStage, fmt.Errorf("promote project: %w", err))
	}
	if err := r.deps.Runs.MarkRunSucceeded(ctx, projectID, runID, qualified); err != nil {
		return nil, r.failRun(projectID, runID, finalizeStage, fmt.Errorf("mark run succeeded: %w", err))
	}
	finalStatus = RunStatusSucceeded

	r.notify(ctx, Event{
		Kind:      EventRunSucceeded,
		ProjectID: projectID,
		RunID:     runID,
		Message:   fmt.Sprintf("%d rows qualified", qualified),
	})
	log.Info("qualification run succeeded", "qualified_rows", qualified)
	return &RunResult{RunID: runID, ProjectID: projectID, Status: RunStatusSucceeded, Qualified: qualified}, nil
}

/*
failRun records a run failure and returns the original cause.
What it does:
  - Persists a durable error record for operator visibility.
  - Marks the run failed; the store's terminal-status guard keeps an
    already-terminal run untouched.
  - Emits a 'run_failed' notification.

Both writes run on a fresh context so a canceled run context cannot
block the failure from being recorded, and their own errors are logged
but never mask the cause.
*/
func (r *Runner) failRun(projectID, runID uuid.UUID, phase string, cause error) error {
	ctx := context.Background()

	if err := r.deps.Errors.RecordDurableError(ctx, projectID, runID, phase, cause); err != nil {
		r.log.Error("record durable error failed",
			"project_id", projectID.String(),
			"run_id", runID.String(),
			"error", err,
		)
	}
	if err := r.deps.Runs.MarkRunFailed(ctx, projectID, runID, phase, cause); err != nil {
		r.log.Error("mark run failed errored",
			"project_id", projectID.String(),
			"run_id", runID.String(),
			"error", err,
		)
	}
	r.notify(ctx, Event{
		Kind:      EventRunFailed,
		ProjectID: projectID,
		RunID:     runID,
		Phase:     phase,
		Message:   cause.Error(),
	})
	r.log.Error("qualification run failed",
		"project_id", projectID.String(),
		"run_id", runID.String(),
		"phase", phase,
		"error", cause,
	)
	return cause
}

func (r *Runner) notify(ctx context.Context, event Event) {
	if r.deps.Notify == nil {
		return
	}
	event.At = time.Now()
	r.deps.Notify.NotifyRunEvent(ctx, event)
}

// Status reports the latest run for a project; a project that has never
// run reports RunStatusIdle.
func (r *Runner) Status(ctx context.Context, projectID uuid.UUID) (*RunStatusView, error) {
	record, err := r.deps.Runs.LatestRun(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &RunStatusView{ProjectID: projectID, Status: RunStatusIdle}, nil
	}
	view := &RunStatusView{
		ProjectID:  projectID,
		Status:     record.Status,
		Phase:      record.Phase,
		Error:      record.Error,
		FinishedAt: record.FinishedAt,
	}
	runID := record.RunID
	view.RunID = &runID
	if !record.StartedAt.IsZero() {
		startedAt := record.StartedAt
		view.StartedAt = &startedAt
	}
	return view, nil
}
