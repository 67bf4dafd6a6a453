package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/data/repos"
	"github.com/jomapps/aladdin-sub006/internal/pkg/dbctx"
	pkgerrors "github.com/jomapps/aladdin-sub006/internal/pkg/errors"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/scheduling"
	"github.com/jomapps/aladdin-sub006/internal/taskpool"
)

// SchedulerService is the operator surface over the department
// scheduler and its pool: weight tuning persisted across restarts,
// ad-hoc scheduling and introspection.
type SchedulerService interface {
	Schedule(task scheduling.Task) (uuid.UUID, error)
	ScheduleBatch(tasks []scheduling.Task) ([]uuid.UUID, error)
	SetDepartmentWeight(ctx context.Context, department string, weight int) (int, error)
	SetCapacity(n int)
	Snapshot() scheduling.Snapshot
	QueueStatus() taskpool.QueueStatus
	Metrics() taskpool.Metrics
}

type schedulerService struct {
	log      *logger.Logger
	sched    *scheduling.Scheduler
	pool     *taskpool.Pool
	profiles repos.DepartmentProfileRepo
}

// NewSchedulerService hydrates stored department weights into the
// scheduler before returning, so tuning survives process restarts.
func NewSchedulerService(
	baseLog *logger.Logger,
	sched *scheduling.Scheduler,
	pool *taskpool.Pool,
	profiles repos.DepartmentProfileRepo,
) (SchedulerService, error) {
	s := &schedulerService{
		log:      baseLog.With("service", "SchedulerService"),
		sched:    sched,
		pool:     pool,
		profiles: profiles,
	}
	if err := s.hydrateWeights(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *schedulerService) hydrateWeights(ctx context.Context) error {
	stored, err := s.profiles.GetAll(dbctx.New(ctx))
	if err != nil {
		return fmt.Errorf("load department profiles: %w", err)
	}
	for _, profile := range stored {
		applied := s.sched.SetDepartmentWeight(profile.Department, profile.Weight)
		if applied != profile.Weight {
			s.log.Warn("stored department weight out of range",
				"department", profile.Department,
				"stored", profile.Weight,
				"applied", applied,
			)
		}
	}
	if len(stored) > 0 {
		s.log.Info("department weights hydrated", "count", len(stored))
	}
	return nil
}

func (s *schedulerService) Schedule(task scheduling.Task) (uuid.UUID, error) {
	return s.sched.Schedule(task)
}

func (s *schedulerService) ScheduleBatch(tasks []scheduling.Task) ([]uuid.UUID, error) {
	return s.sched.ScheduleBatch(tasks)
}

// SetDepartmentWeight applies the clamped weight in memory first, then
// writes it through to the profile row. Returns the weight actually in
// effect.
func (s *schedulerService) SetDepartmentWeight(ctx context.Context, department string, weight int) (int, error) {
	if department == "" {
		return 0, fmt.Errorf("department required: %w", pkgerrors.ErrInvalidArgument)
	}
	applied := s.sched.SetDepartmentWeight(department, weight)
	if _, err := s.profiles.Upsert(dbctx.New(ctx), department, applied); err != nil {
		return 0, fmt.Errorf("store department weight: %w", err)
	}
	return applied, nil
}

func (s *schedulerService) SetCapacity(n int) {
	s.pool.SetCapacity(n)
}

func (s *schedulerService) Snapshot() scheduling.Snapshot {
	return s.sched.Snapshot()
}

func (s *schedulerService) QueueStatus() taskpool.QueueStatus {
	return s.pool.QueueStatus()
}

func (s *schedulerService) Metrics() taskpool.Metrics {
	return s.pool.Metrics()
}
