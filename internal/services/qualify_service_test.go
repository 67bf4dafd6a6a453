package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jomapps/aladdin-sub006/internal/qualify"
)

type fakeLock struct {
	acquireErr error
	acquired   []uuid.UUID
}

func (f *fakeLock) AcquireResourceLock(ctx context.Context, projectID, runID uuid.UUID) error {
	f.acquired = append(f.acquired, runID)
	return f.acquireErr
}

func (f *fakeLock) ReleaseResourceLock(ctx context.Context, projectID, runID uuid.UUID, finalStatus qualify.RunStatus) error {
	return nil
}

func TestWatchedLockReportsWonLock(t *testing.T) {
	inner := &fakeLock{}
	lock := watchedLock{ResourceLock: inner}
	outcome := make(chan lockOutcome, 1)
	ctx := withLockOutcome(context.Background(), outcome)
	runID := uuid.New()

	if err := lock.AcquireResourceLock(ctx, uuid.New(), runID); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	select {
	case out := <-outcome:
		if out.err != nil {
			t.Errorf("outcome err = %v", out.err)
		}
		if out.runID != runID {
			t.Errorf("outcome run id = %s, want %s", out.runID, runID)
		}
	default:
		t.Fatal("no outcome reported")
	}
	if len(inner.acquired) != 1 {
		t.Errorf("inner lock called %d times", len(inner.acquired))
	}
}

func TestWatchedLockReportsConflict(t *testing.T) {
	inner := &fakeLock{acquireErr: qualify.ErrLockConflict}
	lock := watchedLock{ResourceLock: inner}
	outcome := make(chan lockOutcome, 1)
	ctx := withLockOutcome(context.Background(), outcome)

	err := lock.AcquireResourceLock(ctx, uuid.New(), uuid.New())
	if !errors.Is(err, qualify.ErrLockConflict) {
		t.Fatalf("acquire err = %v", err)
	}

	out := <-outcome
	if !errors.Is(out.err, qualify.ErrLockConflict) {
		t.Errorf("outcome err = %v", out.err)
	}
}

func TestWatchedLockWithoutWatcherStillAcquires(t *testing.T) {
	inner := &fakeLock{}
	lock := watchedLock{ResourceLock: inner}

	if err := lock.AcquireResourceLock(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(inner.acquired) != 1 {
		t.Errorf("inner lock called %d times", len(inner.acquired))
	}
}
