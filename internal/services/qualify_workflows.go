package services

import (
	"context"
	"time"

	"github.com/jomapps/aladdin-sub006/internal/clients/agents"
	"github.com/jomapps/aladdin-sub006/internal/observability"
	"github.com/jomapps/aladdin-sub006/internal/qualify"
	"github.com/jomapps/aladdin-sub006/internal/scheduling"
	"github.com/jomapps/aladdin-sub006/internal/taskpool"
)

// agentsInvoker is the pool's execution backend: every work unit becomes
// one department workflow call against the agents service.
type agentsInvoker struct {
	client  agents.Client
	metrics *observability.Metrics
}

func NewAgentsInvoker(client agents.Client, metrics *observability.Metrics) taskpool.Invoker {
	return &agentsInvoker{client: client, metrics: metrics}
}

func (inv *agentsInvoker) Invoke(ctx context.Context, unit taskpool.WorkUnit) (any, error) {
	start := time.Now()
	raw, err := inv.client.RunDepartmentWorkflow(ctx, unit.Department, unit.Kind, unit.Payload)
	status := "ok"
	if err != nil {
		status = "error"
	}
	inv.metrics.ObserveWorkflow(unit.Department, unit.Kind, status, time.Since(start))
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// schedulerWorkflows routes qualification workflows through the
// department scheduler, so runs compete for pool capacity at computed
// priority like any other department work.
type schedulerWorkflows struct {
	sched *scheduling.Scheduler
}

func NewSchedulerWorkflows(sched *scheduling.Scheduler) qualify.WorkflowRunner {
	return &schedulerWorkflows{sched: sched}
}

func (w *schedulerWorkflows) RunWorkflow(ctx context.Context, req qualify.WorkflowRequest) (any, error) {
	return w.sched.ScheduleWait(ctx, scheduling.Task{
		Department: req.Department,
		Kind:       req.Kind,
		Payload:    req.Payload,
	})
}
