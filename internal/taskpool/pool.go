package taskpool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

const shutdownPollInterval = 20 * time.Millisecond

type Config struct {
	Capacity int
}

/*
Pool executes department work units with bounded concurrency. Units wait
in a priority queue (high first, FIFO among equals) and are dispatched
eagerly: at enqueue when a slot is free, at completion of any unit, and
when capacity grows. Capacity shrink never preempts running work, and
shutdown never cancels in-flight invocations.
*/
type Pool struct {
	mu       sync.Mutex
	queue    unitQueue
	active   map[uuid.UUID]*ActiveWork
	waiters  map[uuid.UUID]chan settleResult
	capacity int
	draining bool

	completed     int64
	failed        int64
	totalDuration time.Duration

	invoker Invoker
	baseCtx context.Context
	log     *logger.Logger
}

func New(cfg Config, invoker Invoker, log *logger.Logger) *Pool {
	if invoker == nil {
		panic("taskpool: invoker is required")
	}
	poolLog := log.With("service", "TaskPool")
	capacity := cfg.Capacity
	if capacity < 1 {
		poolLog.Warn("capacity below minimum, clamping to 1", "requested", cfg.Capacity)
		capacity = 1
	}
	return &Pool{
		active:   make(map[uuid.UUID]*ActiveWork),
		waiters:  make(map[uuid.UUID]chan settleResult),
		capacity: capacity,
		invoker:  invoker,
		baseCtx:  context.Background(),
		log:      poolLog,
	}
}

// Enqueue accepts a unit for asynchronous execution and returns its
// assigned id. Fails with ErrShuttingDown once a drain has begun.
func (p *Pool) Enqueue(unit WorkUnit) (uuid.UUID, error) {
	id, _, err := p.enqueue(unit, false)
	return id, err
}

// EnqueueWait enqueues a unit and blocks until it settles, returning the
// invoker's output or the unit's failure. Cancelling ctx abandons the
// wait only; the unit itself still runs to completion.
func (p *Pool) EnqueueWait(ctx context.Context, unit WorkUnit) (any, error) {
	_, settle, err := p.enqueue(unit, true)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-settle:
		return res.output, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) enqueue(unit WorkUnit, wait bool) (uuid.UUID, chan settleResult, error) {
	if unit.Department == "" {
		return uuid.Nil, nil, fmt.Errorf("taskpool: unit department is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draining {
		return uuid.Nil, nil, ErrShuttingDown
	}

	unit.ID = uuid.New()
	unit.EnqueuedAt = time.Now()

	var settle chan settleResult
	if wait {
		settle = make(chan settleResult, 1)
		p.waiters[unit.ID] = settle
	}

	p.queue.insert(unit)
	p.log.Debug("work unit enqueued",
		"unit_id", unit.ID.String(),
		"department", unit.Department,
		"kind", unit.Kind,
		"priority", unit.Priority,
		"queued", p.queue.len(),
	)
	p.dispatchLocked()
	return unit.ID, settle, nil
}

// dispatchLocked starts queued units while free slots remain. Callers
// must hold p.mu.
func (p *Pool) dispatchLocked() {
	for len(p.active) < p.capacity {
		unit, ok := p.queue.pop()
		if !ok {
			return
		}
		work := &ActiveWork{
			WorkerID:   uuid.New(),
			UnitID:     unit.ID,
			Department: unit.Department,
			Kind:       unit.Kind,
			Priority:   unit.Priority,
			StartedAt:  time.Now(),
			State:      StateRunning,
		}
		p.active[unit.ID] = work
		go p.run(work, unit)
	}
}

func (p *Pool) run(work *ActiveWork, unit WorkUnit) {
	started := time.Now()
	output, err := p.invoke(unit)
	duration := time.Since(started)

	p.mu.Lock()
	work.State = StateCompleting
	delete(p.active, unit.ID)
	p.totalDuration += duration
	if err != nil {
		p.failed++
	} else {
		p.completed++
	}
	settle, waited := p.waiters[unit.ID]
	delete(p.waiters, unit.ID)
	p.dispatchLocked()
	p.mu.Unlock()

	if err != nil {
		unitErr := &WorkUnitError{UnitID: unit.ID, Department: unit.Department, Err: err}
		p.log.Warn("work unit failed",
			"unit_id", unit.ID.String(),
			"department", unit.Department,
			"kind", unit.Kind,
			"duration", duration.String(),
			"error", err,
		)
		if waited {
			settle <- settleResult{err: unitErr}
		}
		return
	}

	p.log.Debug("work unit completed",
		"unit_id", unit.ID.String(),
		"department", unit.Department,
		"duration", duration.String(),
	)
	if waited {
		settle <- settleResult{output: output}
	}
}

func (p *Pool) invoke(unit WorkUnit) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workflow panic: %w", errFromRecover(r))
		}
	}()
	return p.invoker.Invoke(p.baseCtx, unit)
}

// SetCapacity adjusts the concurrency bound. Growth dispatches queued
// units immediately; shrink only throttles future dispatch and never
// preempts running units.
func (p *Pool) SetCapacity(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 1 {
		p.log.Warn("capacity below minimum, clamping to 1", "requested", n)
		n = 1
	}
	if n == p.capacity {
		return
	}
	p.log.Info("capacity changed", "from", p.capacity, "to", n)
	p.capacity = n
	p.dispatchLocked()
}

func (p *Pool) DepartmentLoad(department string) Load {
	p.mu.Lock()
	defer p.mu.Unlock()
	load := Load{Queued: p.queue.departmentCount(department)}
	for _, work := range p.active {
		if work.Department == department {
			load.Active++
		}
	}
	return load
}

// DepartmentLoads returns one consistent snapshot across all departments
// with queued or active work. Batch scheduling prices every task against
// this single snapshot.
func (p *Pool) DepartmentLoads() map[string]Load {
	p.mu.Lock()
	defer p.mu.Unlock()
	loads := make(map[string]Load)
	for _, unit := range p.queue.snapshot() {
		l := loads[unit.Department]
		l.Queued++
		loads[unit.Department] = l
	}
	for _, work := range p.active {
		l := loads[work.Department]
		l.Active++
		loads[work.Department] = l
	}
	return loads
}

func (p *Pool) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := Metrics{
		CapacityLimit:  p.capacity,
		ActiveCount:    len(p.active),
		QueuedCount:    p.queue.len(),
		CompletedCount: p.completed,
		FailedCount:    p.failed,
		Draining:       p.draining,
	}
	if settled := p.completed + p.failed; settled > 0 {
		m.AvgUnitDuration = p.totalDuration / time.Duration(settled)
	}
	if p.capacity > 0 {
		m.Utilization = float64(len(p.active)) / float64(p.capacity)
	}
	return m
}

func (p *Pool) QueueStatus() QueueStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := QueueStatus{
		Capacity: p.capacity,
		Draining: p.draining,
		Active:   make([]ActiveSummary, 0, len(p.active)),
		Pending:  make([]PendingSummary, 0, p.queue.len()),
	}
	for _, work := range p.active {
		status.Active = append(status.Active, ActiveSummary{
			WorkerID:   work.WorkerID,
			UnitID:     work.UnitID,
			Department: work.Department,
			Kind:       work.Kind,
			Priority:   work.Priority,
			State:      work.State,
			StartedAt:  work.StartedAt,
		})
	}
	sort.Slice(status.Active, func(i, j int) bool {
		return status.Active[i].StartedAt.Before(status.Active[j].StartedAt)
	})
	for _, unit := range p.queue.snapshot() {
		status.Pending = append(status.Pending, PendingSummary{
			UnitID:     unit.ID,
			Department: unit.Department,
			Kind:       unit.Kind,
			Priority:   unit.Priority,
			EnqueuedAt: unit.EnqueuedAt,
		})
	}
	return status
}

// Shutdown drains the pool: pending units are discarded (their waiters
// released with ErrShuttingDown) and in-flight units are given until the
// timeout to settle. Idempotent; repeated calls wait again without
// touching state twice.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if !p.draining {
		p.draining = true
		discarded := p.queue.drain()
		for _, unit := range discarded {
			if settle, ok := p.waiters[unit.ID]; ok {
				delete(p.waiters, unit.ID)
				settle <- settleResult{err: ErrShuttingDown}
			}
		}
		if len(discarded) > 0 {
			p.log.Info("discarded pending work units", "count", len(discarded))
		}
	}
	p.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		remaining := len(p.active)
		p.mu.Unlock()

		if remaining == 0 {
			p.log.Info("task pool drained")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("task pool shutdown timed out with %d active units", remaining)
		}
		time.Sleep(shutdownPollInterval)
	}
}
