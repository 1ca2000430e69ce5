package driver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunsUntilStepReportsDone(t *testing.T) {
	var calls atomic.Int32
	d := New(func(context.Context) (bool, error) {
		return calls.Add(1) == 3, nil
	})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Join(); err != nil {
		t.Fatalf("join: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if d.Running() {
		t.Fatal("expected driver to be idle after join")
	}
}

func TestStopWaitsForCurrentStep(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls, completed atomic.Int32
	d := New(func(context.Context) (bool, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		completed.Add(1)
		return false, nil
	})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-entered
	d.Stop()
	close(release)
	if err := d.Join(); err != nil {
		t.Fatalf("join: %v", err)
	}
	if completed.Load() != 1 {
		t.Fatalf("completed steps = %d, want 1", completed.Load())
	}
}

func TestStartWhileRunningFails(t *testing.T) {
	release := make(chan struct{})
	d := New(func(context.Context) (bool, error) {
		<-release
		return true, nil
	})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Start(context.Background()); !errors.Is(err, ErrRunning) {
		t.Fatalf("second start err = %v, want %v", err, ErrRunning)
	}
	close(release)
	if err := d.Join(); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart after join: %v", err)
	}
	if err := d.Join(); err != nil {
		t.Fatalf("join: %v", err)
	}
}

func TestJoinReturnsStepError(t *testing.T) {
	want := errors.New("journal down")
	d := New(func(context.Context) (bool, error) { return false, want })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Join(); !errors.Is(err, want) {
		t.Fatalf("join err = %v, want %v", err, want)
	}
}

func TestCancelStopsAtStepBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sawCanceled atomic.Bool
	var calls atomic.Int32
	d := New(func(stepCtx context.Context) (bool, error) {
		if calls.Add(1) == 2 {
			cancel()
			time.Sleep(time.Millisecond)
			sawCanceled.Store(stepCtx.Err() != nil)
		}
		return false, nil
	})
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Join(); err != nil {
		t.Fatalf("join: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if sawCanceled.Load() {
		t.Fatal("step context should not inherit cancellation")
	}
}

func TestJoinWithoutStart(t *testing.T) {
	if err := New(nil).Join(); err != nil {
		t.Fatalf("join: %v", err)
	}
	New(nil).Stop()
}
