package qualify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	return log
}

type releaseCall struct {
	runID  uuid.UUID
	status RunStatus
}

type recordedError struct {
	runID uuid.UUID
	phase string
	cause error
}

// harness implements every runner collaborator in memory, with a
// compare-and-set lock and per-test hooks.
type harness struct {
	mu sync.Mutex

	intakeErr  error
	workflowFn func(req WorkflowRequest) (any, error)

	calls     []string
	payloads  map[string]WorkflowPayload
	completed []string

	persistErrFor map[string]error
	persisted     map[string][]QualifiedRow

	ingestErr error
	ingested  []QualifiedRow

	lockHolder map[uuid.UUID]uuid.UUID
	releases   []releaseCall

	recorded []recordedError

	runsCreated []uuid.UUID
	statusByRun map[uuid.UUID]RunStatus
	phaseByRun  map[uuid.UUID]string
	promoted    []uuid.UUID
	latest      *RunRecord

	events []Event
}

func newHarness() *harness {
	return &harness{
		payloads:      make(map[string]WorkflowPayload),
		persistErrFor: make(map[string]error),
		persisted:     make(map[string][]QualifiedRow),
		lockHolder:    make(map[uuid.UUID]uuid.UUID),
		statusByRun:   make(map[uuid.UUID]RunStatus),
		phaseByRun:    make(map[uuid.UUID]string),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Workflows: h,
		Intake:    h,
		Sink:      h,
		Knowledge: h,
		Lock:      h,
		Errors:    h,
		Runs:      h,
		Notify:    h,
	}
}

func (h *harness) FetchIntakeRows(ctx context.Context, projectID uuid.UUID, department string) ([]IntakeRow, error) {
	if h.intakeErr != nil {
		return nil, h.intakeErr
	}
	return []IntakeRow{{
		ID:         uuid.New(),
		Department: department,
		Kind:       "gather",
		Summary:    department + " notes",
		Content:    json.RawMessage(`{"source":"` + department + `"}`),
	}}, nil
}

func (h *harness) RunWorkflow(ctx context.Context, req WorkflowRequest) (any, error) {
	h.mu.Lock()
	h.calls = append(h.calls, req.Department)
	if payload, ok := req.Payload.(WorkflowPayload); ok {
		h.payloads[req.Department] = payload
	}
	fn := h.workflowFn
	h.mu.Unlock()

	var out any
	var err error
	if fn != nil {
		out, err = fn(req)
	} else {
		out = DepartmentOutput{
			Department: req.Department,
			Qualified: []QualifiedRow{{
				Department: req.Department,
				Content:    json.RawMessage(`{"qualified":true}`),
				Score:      0.9,
			}},
		}
	}

	h.mu.Lock()
	if err == nil {
		h.completed = append(h.completed, req.Department)
	}
	h.mu.Unlock()
	return out, err
}

func (h *harness) PersistQualifiedRows(ctx context.Context, projectID, runID uuid.UUID, rows []QualifiedRow) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, row := range rows {
		if err := h.persistErrFor[row.Department]; err != nil {
			return err
		}
	}
	for _, row := range rows {
		h.persisted[row.Department] = append(h.persisted[row.Department], row)
	}
	return nil
}

func (h *harness) IngestToKnowledgeBase(ctx context.Context, projectID, runID uuid.UUID, rows []QualifiedRow) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ingestErr != nil {
		return h.ingestErr
	}
	h.ingested = append(h.ingested, rows...)
	return nil
}

func (h *harness) AcquireResourceLock(ctx context.Context, projectID, runID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, held := h.lockHolder[projectID]; held {
		return ErrLockConflict
	}
	h.lockHolder[projectID] = runID
	return nil
}

func (h *harness) ReleaseResourceLock(ctx context.Context, projectID, runID uuid.UUID, finalStatus RunStatus) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if holder, held := h.lockHolder[projectID]; held && holder == runID {
		delete(h.lockHolder, projectID)
	}
	h.releases = append(h.releases, releaseCall{runID: runID, status: finalStatus})
	return nil
}

func (h *harness) RecordDurableError(ctx context.Context, projectID, runID uuid.UUID, phase string, cause error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorded = append(h.recorded, recordedError{runID: runID, phase: phase, cause: cause})
	return nil
}

func (h *harness) CreateRun(ctx context.Context, projectID, runID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runsCreated = append(h.runsCreated, runID)
	h.statusByRun[runID] = RunStatusLocked
	return nil
}

func (h *harness) MarkRunRunning(ctx context.Context, projectID, runID uuid.UUID, phase string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusByRun[runID] = RunStatusRunning
	h.phaseByRun[runID] = phase
	return nil
}

func (h *harness) MarkRunPhase(ctx context.Context, runID uuid.UUID, phase string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phaseByRun[runID] = phase
	return nil
}

func (h *harness) MarkRunFailed(ctx context.Context, projectID, runID uuid.UUID, phase string, cause error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusByRun[runID] = RunStatusFailed
	h.phaseByRun[runID] = phase
	return nil
}

func (h *harness) MarkRunSucceeded(ctx context.Context, projectID, runID uuid.UUID, qualified int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusByRun[runID] = RunStatusSucceeded
	return nil
}

func (h *harness) PromoteProject(ctx context.Context, projectID, runID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.promoted = append(h.promoted, projectID)
	return nil
}

func (h *harness) LatestRun(ctx context.Context, projectID uuid.UUID) (*RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, nil
}

func (h *harness) NotifyRunEvent(ctx context.Context, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *harness) callsSnapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.calls))
	copy(out, h.calls)
	return out
}

func newTestRunner(t *testing.T, h *harness) *Runner {
	t.Helper()
	runner, err := NewRunner(defaultPlan(), h.deps(), testLogger(t))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func containsDept(calls []string, department string) bool {
	for _, c := range calls {
		if c == department {
			return true
		}
	}
	return false
}

func TestRunnerHappyPathQualifiesAndPromotes(t *testing.T) {
	h := newHarness()
	runner := newTestRunner(t, h)
	projectID := uuid.New()

	result, err := runner.Run(context.Background(), projectID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != RunStatusSucceeded {
		t.Fatalf("status = %s, want succeeded", result.Status)
	}
	if result.Qualified != 8 {
		t.Fatalf("qualified = %d, want 8 (one row per department)", result.Qualified)
	}

	calls := h.callsSnapshot()
	if len(calls) != 8 {
		t.Fatalf("workflow calls = %d, want 8", len(calls))
	}
	// story runs strictly after the whole foundation phase and strictly
	// before any production department.
	storyIdx := -1
	for i, dep := range calls {
		if dep == "story" {
			storyIdx = i
		}
	}
	if storyIdx != 3 {
		t.Fatalf("story call index = %d, want 3 (after foundation fan-in)", storyIdx)
	}

	if len(h.ingested) != 8 {
		t.Fatalf("ingested rows = %d, want 8", len(h.ingested))
	}
	if len(h.promoted) != 1 || h.promoted[0] != projectID {
		t.Fatalf("promoted = %v, want [%s]", h.promoted, projectID)
	}
	if len(h.releases) != 1 || h.releases[0].status != RunStatusSucceeded {
		t.Fatalf("releases = %+v, want one with succeeded", h.releases)
	}
	if h.statusByRun[result.RunID] != RunStatusSucceeded {
		t.Fatalf("run record status = %s, want succeeded", h.statusByRun[result.RunID])
	}
	if len(h.lockHolder) != 0 {
		t.Fatal("lock still held after run")
	}

	kinds := make([]EventKind, 0, len(h.events))
	for _, e := range h.events {
		kinds = append(kinds, e.Kind)
	}
	if kinds[0] != EventRunStarted || kinds[len(kinds)-1] != EventRunSucceeded {
		t.Fatalf("event kinds = %v", kinds)
	}
}

func TestRunnerAbortsRunOnPhaseFailure(t *testing.T) {
	h := newHarness()
	h.workflowFn = func(req WorkflowRequest) (any, error) {
		switch req.Department {
		case "world":
			return nil, errors.New("world model timeout")
		case "visual":
			return nil, errors.New("render budget exceeded")
		default:
			return DepartmentOutput{Department: req.Department}, nil
		}
	}
	runner := newTestRunner(t, h)

	_, err := runner.Run(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected run failure")
	}
	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) {
		t.Fatalf("error %T, want *PhaseError", err)
	}
	if phaseErr.Phase != "foundation" {
		t.Fatalf("failed phase = %s, want foundation", phaseErr.Phase)
	}
	deps := phaseErr.Departments()
	if len(deps) != 2 || deps[0] != "world" || deps[1] != "visual" {
		t.Fatalf("failing departments = %v, want [world visual] in declaration order", deps)
	}
	msg := err.Error()
	for _, fragment := range []string{"world", "visual", "world model timeout", "render budget exceeded"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("error %q missing %q", msg, fragment)
		}
	}

	calls := h.callsSnapshot()
	for _, later := range []string{"story", "image_quality", "audio", "video", "production"} {
		if containsDept(calls, later) {
			t.Fatalf("department %s ran after foundation failed", later)
		}
	}
	if len(h.recorded) != 1 || h.recorded[0].phase != "foundation" {
		t.Fatalf("durable errors = %+v, want one for foundation", h.recorded)
	}
	if len(h.releases) != 1 || h.releases[0].status != RunStatusFailed {
		t.Fatalf("releases = %+v, want one with failed", h.releases)
	}
	if len(h.ingested) != 0 || len(h.promoted) != 0 {
		t.Fatal("failed run must not ingest or promote")
	}
	// Nothing was persisted: persistence is gated on the whole phase
	// succeeding.
	if len(h.persisted) != 0 {
		t.Fatalf("persisted = %v, want none from failed phase", h.persisted)
	}
}

func TestRunnerParallelSiblingsRunToCompletion(t *testing.T) {
	h := newHarness()
	h.workflowFn = func(req WorkflowRequest) (any, error) {
		switch req.Department {
		case "world":
			return nil, errors.New("boom")
		case "character":
			time.Sleep(40 * time.Millisecond)
			return DepartmentOutput{Department: "character"}, nil
		default:
			return DepartmentOutput{Department: req.Department}, nil
		}
	}
	runner := newTestRunner(t, h)

	_, err := runner.Run(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected run failure")
	}

	h.mu.Lock()
	completed := make([]string, len(h.completed))
	copy(completed, h.completed)
	h.mu.Unlock()
	if !containsDept(completed, "character") {
		t.Fatal("slow sibling was not allowed to finish after another sibling failed")
	}
}

func TestRunnerSequentialPhaseSeesEarlierOutputs(t *testing.T) {
	h := newHarness()
	runner := newTestRunner(t, h)

	if _, err := runner.Run(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	h.mu.Lock()
	storyPayload, ok := h.payloads["story"]
	audioPayload, audioOK := h.payloads["audio"]
	h.mu.Unlock()

	if !ok {
		t.Fatal("story payload not captured")
	}
	if len(storyPayload.Prior) != 3 {
		t.Fatalf("story prior outputs = %d, want 3 foundation outputs", len(storyPayload.Prior))
	}
	priorDeps := make(map[string]bool)
	for _, out := range storyPayload.Prior {
		priorDeps[out.Department] = true
	}
	for _, dep := range []string{"character", "world", "visual"} {
		if !priorDeps[dep] {
			t.Fatalf("story prior missing %s", dep)
		}
	}
	if storyPayload.Phase != "narrative" || storyPayload.Department != "story" {
		t.Fatalf("story payload = %+v", storyPayload)
	}
	if len(storyPayload.Intake) != 1 {
		t.Fatalf("story intake rows = %d, want 1", len(storyPayload.Intake))
	}

	if !audioOK {
		t.Fatal("audio payload not captured")
	}
	if len(audioPayload.Prior) != 4 {
		t.Fatalf("audio prior outputs = %d, want foundation plus narrative", len(audioPayload.Prior))
	}
}

func TestRunnerLockConflictHasNoSideEffects(t *testing.T) {
	h := newHarness()
	projectID := uuid.New()
	h.lockHolder[projectID] = uuid.New()
	runner := newTestRunner(t, h)

	_, err := runner.Run(context.Background(), projectID)
	if !errors.Is(err, ErrLockConflict) {
		t.Fatalf("err = %v, want ErrLockConflict", err)
	}
	if len(h.runsCreated) != 0 {
		t.Fatal("conflicting run created a run record")
	}
	if len(h.callsSnapshot()) != 0 {
		t.Fatal("conflicting run invoked workflows")
	}
	if len(h.releases) != 0 {
		t.Fatal("conflicting run released a lock it never held")
	}
	if len(h.recorded) != 0 {
		t.Fatal("conflicting run recorded a durable error")
	}
}

func TestRunnerMutualExclusionUnderConcurrency(t *testing.T) {
	h := newHarness()
	h.workflowFn = func(req WorkflowRequest) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return DepartmentOutput{Department: req.Department}, nil
	}
	runner := newTestRunner(t, h)
	projectID := uuid.New()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := runner.Run(context.Background(), projectID)
			errs <- err
		}()
	}

	var conflicts, successes int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			successes++
		case errors.Is(err, ErrLockConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("successes = %d conflicts = %d, want exactly one of each", successes, conflicts)
	}
}

func TestRunnerPersistenceFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.persistErrFor["story"] = errors.New("qualified store unavailable")
	runner := newTestRunner(t, h)

	_, err := runner.Run(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected run failure")
	}
	var persistErr *PersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("error %T, want *PersistError", err)
	}
	if persistErr.Department != "story" {
		t.Fatalf("failing department = %s, want story", persistErr.Department)
	}

	calls := h.callsSnapshot()
	for _, later := range []string{"image_quality", "audio", "video", "production"} {
		if containsDept(calls, later) {
			t.Fatalf("department %s ran after persistence failed", later)
		}
	}
	if len(h.recorded) != 1 || h.recorded[0].phase != "narrative" {
		t.Fatalf("durable errors = %+v, want one for narrative", h.recorded)
	}
	if len(h.releases) != 1 || h.releases[0].status != RunStatusFailed {
		t.Fatalf("releases = %+v, want one with failed", h.releases)
	}
	// The foundation phase's rows stay written for debugging, but the run
	// is failed so nothing downstream treats them as authoritative.
	if len(h.persisted) != 3 {
		t.Fatalf("persisted departments = %d, want the 3 foundation ones", len(h.persisted))
	}
}

func TestRunnerIngestFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.ingestErr = errors.New("graph unavailable")
	runner := newTestRunner(t, h)

	_, err := runner.Run(context.Background(), uuid.New())
	if err == nil || !strings.Contains(err.Error(), "knowledge base ingest") {
		t.Fatalf("err = %v, want knowledge base ingest failure", err)
	}
	if len(h.promoted) != 0 {
		t.Fatal("project promoted despite ingest failure")
	}
	if len(h.recorded) != 1 || h.recorded[0].phase != finalizeStage {
		t.Fatalf("durable errors = %+v, want one for finalize", h.recorded)
	}
	if len(h.releases) != 1 || h.releases[0].status != RunStatusFailed {
		t.Fatalf("releases = %+v, want one with failed", h.releases)
	}
}

func TestRunnerStatusReportsIdleWithoutRuns(t *testing.T) {
	h := newHarness()
	runner := newTestRunner(t, h)

	view, err := runner.Status(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != RunStatusIdle || view.RunID != nil {
		t.Fatalf("view = %+v, want idle without run id", view)
	}
}

func TestRunnerStatusMapsLatestRun(t *testing.T) {
	h := newHarness()
	runID := uuid.New()
	projectID := uuid.New()
	finished := time.Now()
	h.latest = &RunRecord{
		RunID:      runID,
		ProjectID:  projectID,
		Status:     RunStatusFailed,
		Phase:      "production",
		Error:      "phase production failed in 1 department(s): audio: mix rejected",
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: &finished,
	}
	runner := newTestRunner(t, h)

	view, err := runner.Status(context.Background(), projectID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != RunStatusFailed || view.RunID == nil || *view.RunID != runID {
		t.Fatalf("view = %+v", view)
	}
	if view.Phase != "production" || view.StartedAt == nil || view.FinishedAt == nil {
		t.Fatalf("view = %+v", view)
	}
}

func TestNewRunnerValidatesPlanAndDeps(t *testing.T) {
	h := newHarness()

	if _, err := NewRunner(Plan{}, h.deps(), testLogger(t)); err == nil {
		t.Fatal("expected error for empty plan")
	}

	deps := h.deps()
	deps.Lock = nil
	if _, err := NewRunner(defaultPlan(), deps, testLogger(t)); err == nil {
		t.Fatal("expected error for missing lock dependency")
	}

	deps = h.deps()
	deps.Notify = nil
	if _, err := NewRunner(defaultPlan(), deps, testLogger(t)); err != nil {
		t.Fatalf("nil notifier should be allowed: %v", err)
	}
}

func TestRunnerCanceledContextFailsRun(t *testing.T) {
	h := newHarness()
	runner := newTestRunner(t, h)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, uuid.New())
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(h.callsSnapshot()) != 0 {
		t.Fatal("workflows ran on canceled context")
	}
	if got := fmt.Sprint(h.releases); len(h.releases) != 1 || h.releases[0].status != RunStatusFailed {
		t.Fatalf("releases = %s, want one with failed", got)
	}
}
