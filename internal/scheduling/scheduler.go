package scheduling

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/taskpool"
)

const (
	DefaultWeight = 5
	MinWeight     = 1
	MaxWeight     = 10

	// loadRelief is the idle bonus: a department with no active or queued
	// work gets +5, decaying by one per outstanding unit until it reaches
	// zero. Busy departments never go below their base weight.
	loadRelief = 5
)

// Task is a department work request before pricing. A nil Priority asks
// the scheduler to compute one from weight and load; a non-nil Priority
// is used verbatim.
type Task struct {
	Department string
	Kind       string
	Payload    any
	Priority   *int
}

type DepartmentStatus struct {
	Department   string `json:"department"`
	Weight       int    `json:"weight"`
	Active       int    `json:"active"`
	Queued       int    `json:"queued"`
	AutoPriority int    `json:"auto_priority"`
}

type Snapshot struct {
	Departments []DepartmentStatus `json:"departments"`
	Pool        taskpool.Metrics   `json:"pool"`
}

// Scheduler turns department tasks into prioritized pool units. Weights
// are per-department base priorities; the load factor favors idle
// departments so no single one monopolizes the pool.
type Scheduler struct {
	pool *taskpool.Pool
	log  *logger.Logger

	mu      sync.RWMutex
	weights map[string]int
}

func New(pool *taskpool.Pool, log *logger.Logger) *Scheduler {
	return &Scheduler{
		pool:    pool,
		log:     log.With("service", "DepartmentScheduler"),
		weights: make(map[string]int),
	}
}

// SetDepartmentWeight stores the base weight for a department, clamping
// into [MinWeight, MaxWeight], and returns the applied value.
func (s *Scheduler) SetDepartmentWeight(department string, weight int) int {
	applied := weight
	if applied < MinWeight {
		applied = MinWeight
	} else if applied > MaxWeight {
		applied = MaxWeight
	}
	if applied != weight {
		s.log.Warn("department weight clamped",
			"department", department,
			"requested", weight,
			"applied", applied,
		)
	}
	s.mu.Lock()
	s.weights[department] = applied
	s.mu.Unlock()
	return applied
}

func (s *Scheduler) DepartmentWeight(department string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.weights[department]; ok {
		return w
	}
	return DefaultWeight
}

func loadFactor(load taskpool.Load) int {
	factor := loadRelief - load.Total()
	if factor < 0 {
		return 0
	}
	return factor
}

func (s *Scheduler) resolvePriority(task Task, load taskpool.Load) int {
	if task.Priority != nil {
		return *task.Priority
	}
	return s.DepartmentWeight(task.Department) + loadFactor(load)
}

// Schedule prices a single task against current load and enqueues it.
func (s *Scheduler) Schedule(task Task) (uuid.UUID, error) {
	priority := s.resolvePriority(task, s.pool.DepartmentLoad(task.Department))
	return s.pool.Enqueue(taskpool.WorkUnit{
		Department: task.Department,
		Kind:       task.Kind,
		Payload:    task.Payload,
		Priority:   priority,
	})
}

// ScheduleWait prices and enqueues a task, then blocks until it settles.
func (s *Scheduler) ScheduleWait(ctx context.Context, task Task) (any, error) {
	priority := s.resolvePriority(task, s.pool.DepartmentLoad(task.Department))
	return s.pool.EnqueueWait(ctx, taskpool.WorkUnit{
		Department: task.Department,
		Kind:       task.Kind,
		Payload:    task.Payload,
		Priority:   priority,
	})
}

// ScheduleBatch prices every task against one load snapshot taken before
// any submission, then submits in descending priority order. Tasks the
// batch itself enqueues do not alter sibling priorities. On a mid-batch
// rejection the ids accepted so far are returned with the error.
func (s *Scheduler) ScheduleBatch(tasks []Task) ([]uuid.UUID, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	loads := s.pool.DepartmentLoads()

	type priced struct {
		task     Task
		priority int
	}
	batch := make([]priced, len(tasks))
	for i, task := range tasks {
		batch[i] = priced{task: task, priority: s.resolvePriority(task, loads[task.Department])}
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].priority > batch[j].priority
	})

	ids := make([]uuid.UUID, 0, len(batch))
	for _, p := range batch {
		id, err := s.pool.Enqueue(taskpool.WorkUnit{
			Department: p.task.Department,
			Kind:       p.task.Kind,
			Payload:    p.task.Payload,
			Priority:   p.priority,
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	s.log.Debug("batch scheduled", "count", len(ids))
	return ids, nil
}

// Snapshot reports every department that has a configured weight or
// outstanding work, with the priority a new unweighted task would get.
func (s *Scheduler) Snapshot() Snapshot {
	loads := s.pool.DepartmentLoads()

	s.mu.RLock()
	departments := make(map[string]struct{}, len(s.weights)+len(loads))
	for dep := range s.weights {
		departments[dep] = struct{}{}
	}
	s.mu.RUnlock()
	for dep := range loads {
		departments[dep] = struct{}{}
	}

	statuses := make([]DepartmentStatus, 0, len(departments))
	for dep := range departments {
		load := loads[dep]
		statuses = append(statuses, DepartmentStatus{
			Department:   dep,
			Weight:       s.DepartmentWeight(dep),
			Active:       load.Active,
			Queued:       load.Queued,
			AutoPriority: s.DepartmentWeight(dep) + loadFactor(load),
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Department < statuses[j].Department
	})
	return Snapshot{Departments: statuses, Pool: s.pool.Metrics()}
}
