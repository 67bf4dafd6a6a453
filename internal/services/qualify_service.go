package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/data/repos"
	"github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/jomapps/aladdin-sub006/internal/pkg/errors"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/qualify"
)

// QualifyService starts and inspects qualification runs. StartRun
// answers synchronously once the project lock is decided; the run
// itself executes on a background goroutine owned by the service.
type QualifyService interface {
	StartRun(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error)
	Status(ctx context.Context, projectID uuid.UUID) (*qualify.RunStatusView, error)
	RunHistory(ctx context.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineRun, error)
	Events(ctx context.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineEvent, error)
	Plan() qualify.Plan
	Drain(timeout time.Duration) error
}

type qualifyService struct {
	log      *logger.Logger
	runner   *qualify.Runner
	projects repos.ProjectRepo
	runs     repos.PipelineRunRepo
	events   repos.PipelineEventRepo
	wg       sync.WaitGroup
}

func NewQualifyService(
	baseLog *logger.Logger,
	plan qualify.Plan,
	deps qualify.Deps,
	projects repos.ProjectRepo,
	runs repos.PipelineRunRepo,
	events repos.PipelineEventRepo,
) (QualifyService, error) {
	if deps.Lock != nil {
		deps.Lock = watchedLock{ResourceLock: deps.Lock}
	}
	runner, err := qualify.NewRunner(plan, deps, baseLog)
	if err != nil {
		return nil, err
	}
	return &qualifyService{
		log:      baseLog.With("service", "QualifyService"),
		runner:   runner,
		projects: projects,
		runs:     runs,
		events:   events,
	}, nil
}

type lockOutcome struct {
	runID uuid.UUID
	err   error
}

type lockOutcomeKey struct{}

func withLockOutcome(ctx context.Context, ch chan lockOutcome) context.Context {
	return context.WithValue(ctx, lockOutcomeKey{}, ch)
}

// watchedLock reports each acquisition attempt to the channel carried
// by the run context. StartRun waits on that channel, so callers learn
// whether the lock was won before the response goes out while the run
// keeps executing in the background.
type watchedLock struct {
	qualify.ResourceLock
}

func (w watchedLock) AcquireResourceLock(ctx context.Context, projectID, runID uuid.UUID) error {
	err := w.ResourceLock.AcquireResourceLock(ctx, projectID, runID)
	if ch, ok := ctx.Value(lockOutcomeKey{}).(chan lockOutcome); ok {
		ch <- lockOutcome{runID: runID, err: err}
	}
	return err
}

/*
StartRun kicks off a qualification run for one project.
What it does:
  - Verifies the project exists.
  - Launches the runner on a service-owned goroutine with a fresh
    context, so client disconnects never abort a run in progress.
  - Blocks only until the project lock is decided: a won lock returns
    the new run id, a held lock returns ErrLockConflict.

Failures after the lock is won are recorded by the runner and surface
through Status and the project's SSE channel, not through StartRun.
*/
func (s *qualifyService) StartRun(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error) {
	project, err := s.projects.GetByID(dbctx.New(ctx), projectID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return uuid.Nil, fmt.Errorf("project %s: %w", projectID, pkgerrors.ErrNotFound)
	}

	outcome := make(chan lockOutcome, 1)
	runCtx := withLockOutcome(context.Background(), outcome)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Terminal state, durable error rows and notifications are all
		// handled inside the runner.
		_, _ = s.runner.Run(runCtx, projectID)
	}()

	select {
	case out := <-outcome:
		if out.err != nil {
			return uuid.Nil, out.err
		}
		s.log.Info("qualification run accepted",
			"project_id", projectID.String(),
			"run_id", out.runID.String(),
		)
		return out.runID, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

func (s *qualifyService) Status(ctx context.Context, projectID uuid.UUID) (*qualify.RunStatusView, error) {
	project, err := s.projects.GetByID(dbctx.New(ctx), projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, pkgerrors.ErrNotFound)
	}
	return s.runner.Status(ctx, projectID)
}

func (s *qualifyService) RunHistory(ctx context.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineRun, error) {
	return s.runs.ListByProject(dbctx.New(ctx), projectID, limit)
}

func (s *qualifyService) Events(ctx context.Context, projectID uuid.UUID, limit int) ([]*domain.PipelineEvent, error) {
	return s.events.ListByProject(dbctx.New(ctx), projectID, limit)
}

func (s *qualifyService) Plan() qualify.Plan {
	return s.runner.Plan()
}

// Drain waits for in-flight runs to settle during shutdown.
func (s *qualifyService) Drain(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("qualification runs still active after %s", timeout)
	}
}
