package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/taskpool"
)

type invokerFunc func(ctx context.Context, unit taskpool.WorkUnit) (any, error)

func (f invokerFunc) Invoke(ctx context.Context, unit taskpool.WorkUnit) (any, error) {
	return f(ctx, unit)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	return log
}

func intPtr(v int) *int { return &v }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// blockedPool returns a capacity-1 pool whose single slot is held by a
// blocker unit until the returned release func is called, so scheduled
// tasks stay observable in the queue.
func blockedPool(t *testing.T, blockerDepartment string) (*taskpool.Pool, func()) {
	t.Helper()
	release := make(chan struct{})
	pool := taskpool.New(taskpool.Config{Capacity: 1}, invokerFunc(func(ctx context.Context, unit taskpool.WorkUnit) (any, error) {
		if unit.Kind == "blocker" {
			<-release
		}
		return nil, nil
	}), testLogger(t))

	if _, err := pool.Enqueue(taskpool.WorkUnit{Department: blockerDepartment, Kind: "blocker", Priority: 100}); err != nil {
		t.Fatalf("enqueue blocker: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return pool.Metrics().ActiveCount == 1
	}, "blocker to start")

	var released bool
	return pool, func() {
		if !released {
			released = true
			close(release)
		}
	}
}

func TestSchedulerExplicitPriorityWinsOverComputed(t *testing.T) {
	pool, release := blockedPool(t, "production")
	defer release()
	s := New(pool, testLogger(t))

	if _, err := s.Schedule(Task{Department: "audio", Kind: "qualify", Priority: intPtr(2)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	pending := pool.QueueStatus().Pending
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Priority != 2 {
		t.Fatalf("priority = %d, want explicit 2 (auto would be %d)", pending[0].Priority, DefaultWeight+loadRelief)
	}
}

func TestSchedulerComputesPriorityFromWeightAndLoad(t *testing.T) {
	pool, release := blockedPool(t, "audio")
	defer release()
	s := New(pool, testLogger(t))

	// audio carries the active blocker, so its load factor is one lower
	// than an idle department's.
	if _, err := s.Schedule(Task{Department: "audio", Kind: "qualify"}); err != nil {
		t.Fatalf("schedule audio: %v", err)
	}
	if _, err := s.Schedule(Task{Department: "world", Kind: "qualify"}); err != nil {
		t.Fatalf("schedule world: %v", err)
	}

	pending := pool.QueueStatus().Pending
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].Department != "world" || pending[0].Priority != 10 {
		t.Fatalf("head = %s/%d, want world/10", pending[0].Department, pending[0].Priority)
	}
	if pending[1].Department != "audio" || pending[1].Priority != 9 {
		t.Fatalf("tail = %s/%d, want audio/9", pending[1].Department, pending[1].Priority)
	}
}

func TestSchedulerQueuedWorkLowersPriority(t *testing.T) {
	pool, release := blockedPool(t, "story")
	defer release()
	s := New(pool, testLogger(t))

	for i := 0; i < 5; i++ {
		if _, err := s.Schedule(Task{Department: "story", Kind: "qualify"}); err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
	}
	// Load factor bottoms out at zero: active 1 + queued 4 exhausts the
	// relief, so the sixth task gets the bare weight.
	if _, err := s.Schedule(Task{Department: "story", Kind: "qualify"}); err != nil {
		t.Fatalf("schedule sixth: %v", err)
	}
	pending := pool.QueueStatus().Pending
	last := pending[len(pending)-1]
	if last.Priority != DefaultWeight {
		t.Fatalf("saturated priority = %d, want bare weight %d", last.Priority, DefaultWeight)
	}
}

func TestSchedulerClampsWeights(t *testing.T) {
	pool, release := blockedPool(t, "production")
	defer release()
	s := New(pool, testLogger(t))

	if applied := s.SetDepartmentWeight("visual", 42); applied != MaxWeight {
		t.Fatalf("applied = %d, want clamp to %d", applied, MaxWeight)
	}
	if applied := s.SetDepartmentWeight("audio", 0); applied != MinWeight {
		t.Fatalf("applied = %d, want clamp to %d", applied, MinWeight)
	}
	if applied := s.SetDepartmentWeight("story", 7); applied != 7 {
		t.Fatalf("applied = %d, want 7", applied)
	}
	if got := s.DepartmentWeight("character"); got != DefaultWeight {
		t.Fatalf("unset weight = %d, want default %d", got, DefaultWeight)
	}
}

func TestSchedulerBatchPricesAgainstOneSnapshot(t *testing.T) {
	pool, release := blockedPool(t, "production")
	defer release()
	s := New(pool, testLogger(t))
	s.SetDepartmentWeight("character", 9)
	s.SetDepartmentWeight("audio", 2)

	ids, err := s.ScheduleBatch([]Task{
		{Department: "audio", Kind: "qualify"},
		{Department: "story", Kind: "qualify"},
		{Department: "character", Kind: "qualify"},
		{Department: "story", Kind: "qualify"},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("ids = %d, want 4", len(ids))
	}

	pending := pool.QueueStatus().Pending
	wantOrder := []string{"character", "story", "story", "audio"}
	for i, dep := range wantOrder {
		if pending[i].Department != dep {
			t.Fatalf("pending[%d] = %s, want %s", i, pending[i].Department, dep)
		}
	}
	// Both story tasks were priced against the pre-batch snapshot, so the
	// second one is not penalized by the first's presence in the queue.
	if pending[1].Priority != pending[2].Priority {
		t.Fatalf("story priorities %d vs %d, want equal from shared snapshot",
			pending[1].Priority, pending[2].Priority)
	}
	if pending[0].Priority != 14 || pending[3].Priority != 7 {
		t.Fatalf("priorities head=%d tail=%d, want 14 and 7", pending[0].Priority, pending[3].Priority)
	}
}

func TestSchedulerBatchSurfacesPoolRejection(t *testing.T) {
	pool := taskpool.New(taskpool.Config{Capacity: 1}, invokerFunc(func(ctx context.Context, unit taskpool.WorkUnit) (any, error) {
		return nil, nil
	}), testLogger(t))
	if err := pool.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	s := New(pool, testLogger(t))

	ids, err := s.ScheduleBatch([]Task{{Department: "world", Kind: "qualify"}})
	if !errors.Is(err, taskpool.ErrShuttingDown) {
		t.Fatalf("err = %v, want ErrShuttingDown", err)
	}
	if len(ids) != 0 {
		t.Fatalf("ids = %d, want none accepted", len(ids))
	}
}

func TestSchedulerSnapshotListsWeightedAndLoadedDepartments(t *testing.T) {
	pool, release := blockedPool(t, "video")
	defer release()
	s := New(pool, testLogger(t))
	s.SetDepartmentWeight("character", 8)

	if _, err := s.Schedule(Task{Department: "audio", Kind: "qualify"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	snap := s.Snapshot()
	byDep := make(map[string]DepartmentStatus)
	for _, d := range snap.Departments {
		byDep[d.Department] = d
	}
	if d, ok := byDep["character"]; !ok || d.Weight != 8 || d.AutoPriority != 13 {
		t.Fatalf("character status = %+v", byDep["character"])
	}
	if d, ok := byDep["audio"]; !ok || d.Queued != 1 || d.AutoPriority != 9 {
		t.Fatalf("audio status = %+v", byDep["audio"])
	}
	if d, ok := byDep["video"]; !ok || d.Active != 1 {
		t.Fatalf("video status = %+v", byDep["video"])
	}
	if snap.Pool.CapacityLimit != 1 {
		t.Fatalf("pool capacity = %d, want 1", snap.Pool.CapacityLimit)
	}
}
