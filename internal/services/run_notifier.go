package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/observability"
	"github.com/jomapps/aladdin-sub006/internal/qualify"
	"github.com/jomapps/aladdin-sub006/internal/realtime"
)

// RunNotifier fans qualification progress out to the per-project SSE
// channel. It satisfies qualify.Notifier, so the runner stays unaware of
// the transport behind it.
type RunNotifier interface {
	NotifyRunEvent(ctx context.Context, event qualify.Event)
	GatherItemsAdded(ctx context.Context, projectID uuid.UUID, department string, count int)
}

type runNotifier struct {
	emit    SSEEmitter
	metrics *observability.Metrics

	mu          sync.Mutex
	phaseStarts map[uuid.UUID]map[string]time.Time
}

func NewRunNotifier(emit SSEEmitter, metrics *observability.Metrics) RunNotifier {
	return &runNotifier{
		emit:        emit,
		metrics:     metrics,
		phaseStarts: make(map[uuid.UUID]map[string]time.Time),
	}
}

func (n *runNotifier) NotifyRunEvent(ctx context.Context, event qualify.Event) {
	if n == nil {
		return
	}
	n.observe(event)
	if n.emit == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ProjectChannel(event.ProjectID),
		Event:   sseEventFor(event.Kind),
		Data: map[string]any{
			"project_id": event.ProjectID,
			"run_id":     event.RunID,
			"phase":      event.Phase,
			"message":    event.Message,
			"at":         event.At,
		},
	})
}

// observe derives run/phase metrics from the event stream. Phase
// durations are measured between the started and finished events of the
// same run.
func (n *runNotifier) observe(event qualify.Event) {
	if n.metrics == nil {
		return
	}
	switch event.Kind {
	case qualify.EventPhaseStarted:
		n.mu.Lock()
		starts, ok := n.phaseStarts[event.RunID]
		if !ok {
			starts = make(map[string]time.Time)
			n.phaseStarts[event.RunID] = starts
		}
		starts[event.Phase] = event.At
		n.mu.Unlock()
	case qualify.EventPhaseFinished:
		if d, ok := n.takePhaseStart(event.RunID, event.Phase, event.At); ok {
			n.metrics.ObserveQualifyPhase(event.Phase, "ok", d)
		}
	case qualify.EventRunSucceeded:
		n.metrics.IncQualifyRun("succeeded")
		n.dropRun(event.RunID)
	case qualify.EventRunFailed:
		n.metrics.IncQualifyRun("failed")
		if d, ok := n.takePhaseStart(event.RunID, event.Phase, event.At); ok {
			n.metrics.ObserveQualifyPhase(event.Phase, "error", d)
		}
		n.dropRun(event.RunID)
	}
}

func (n *runNotifier) takePhaseStart(runID uuid.UUID, phase string, at time.Time) (time.Duration, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	starts, ok := n.phaseStarts[runID]
	if !ok {
		return 0, false
	}
	started, ok := starts[phase]
	if !ok {
		return 0, false
	}
	delete(starts, phase)
	return at.Sub(started), true
}

func (n *runNotifier) dropRun(runID uuid.UUID) {
	n.mu.Lock()
	delete(n.phaseStarts, runID)
	n.mu.Unlock()
}

func (n *runNotifier) GatherItemsAdded(ctx context.Context, projectID uuid.UUID, department string, count int) {
	if n == nil || n.emit == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ProjectChannel(projectID),
		Event:   realtime.SSEEventGatherAdded,
		Data: map[string]any{
			"project_id": projectID,
			"department": department,
			"count":      count,
		},
	})
}

func sseEventFor(kind qualify.EventKind) realtime.SSEEvent {
	switch kind {
	case qualify.EventRunStarted:
		return realtime.SSEEventRunStarted
	case qualify.EventPhaseStarted:
		return realtime.SSEEventPhaseStarted
	case qualify.EventPhaseFinished:
		return realtime.SSEEventPhaseFinished
	case qualify.EventRunSucceeded:
		return realtime.SSEEventRunSucceeded
	case qualify.EventRunFailed:
		return realtime.SSEEventRunFailed
	default:
		return realtime.SSEEvent(string(kind))
	}
}
