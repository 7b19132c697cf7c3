package scheduler

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func resetScheduler(t *testing.T) {
	t.Helper()
	sched = nil
	initOnce = sync.Once{}
	initErr = nil
	stopOnce = sync.Once{}
	stopErr = nil
	t.Cleanup(func() {
		if sched != nil {
			_ = sched.Shutdown()
		}
		sched = nil
		initOnce = sync.Once{}
		initErr = nil
		stopOnce = sync.Once{}
		stopErr = nil
	})
}

type fakePurger struct {
	removed int64
}

func (f *fakePurger) DeleteBefore(_ context.Context, _ string) (int64, error) {
	return f.removed, nil
}

func TestAddJobRequiresInit(t *testing.T) {
	resetScheduler(t)

	if _, err := AddJob("purge", "0 3 * * *", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if err := Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("start: %v", err)
	}
	if err := Stop(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("stop: %v", err)
	}
}

func TestAddJobValidation(t *testing.T) {
	resetScheduler(t)

	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := AddJob("  ", "0 3 * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("empty name: %v", err)
	}
	if _, err := AddJob("purge", "", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("empty cron: %v", err)
	}
	if _, err := AddJob("purge", "not a cron expr", func() {}); err == nil {
		t.Fatalf("expected error for invalid cron expression")
	}

	job, err := AddJob("purge", "0 3 * * *", func() {})
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if job.Name() != "purge" {
		t.Fatalf("job name: %s", job.Name())
	}

	if err := Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Stop is idempotent.
	if err := Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	resetScheduler(t)

	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	first := sched
	if err := Init(); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if sched != first {
		t.Fatalf("init replaced the scheduler")
	}
}

func TestRegisterPurgeJobDisabled(t *testing.T) {
	resetScheduler(t)

	// Non-positive retention skips registration entirely, so it works
	// even without an initialized scheduler.
	if err := RegisterPurgeJob(&fakePurger{}, 0); err != nil {
		t.Fatalf("retention 0: %v", err)
	}
	if err := RegisterPurgeJob(&fakePurger{}, -1); err != nil {
		t.Fatalf("negative retention: %v", err)
	}
}

func TestRegisterPurgeJob(t *testing.T) {
	resetScheduler(t)

	if err := Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := RegisterPurgeJob(&fakePurger{removed: 3}, 365); err != nil {
		t.Fatalf("register: %v", err)
	}
}
