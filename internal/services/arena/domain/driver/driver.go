// Package driver repeats a unit of match work on a background goroutine.
//
// Stop is cooperative: it is observed between steps only, so a step in
// progress always runs to completion.
package driver

import (
	"context"
	"sync"

	apperrors "github.com/louisbranch/broadside/internal/platform/errors"
)

// ErrRunning is returned by Start while a loop is active.
var ErrRunning = apperrors.New(apperrors.CodeDriverRunning, "driver is already running")

// StepFunc performs one unit of work and reports whether the loop is done.
type StepFunc func(ctx context.Context) (done bool, err error)

// Driver owns at most one loop at a time.
type Driver struct {
	step StepFunc

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	err     error
}

// New returns an idle driver for step.
func New(step StepFunc) *Driver {
	return &Driver{step: step}
}

// Start launches the loop. Steps receive a context that keeps ctx's values
// but not its cancellation, so canceling ctx stops the loop at the next
// step boundary instead of interrupting a step.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrRunning
	}
	d.running = true
	d.err = nil
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.loop(ctx, d.stop, d.done)
	return nil
}

func (d *Driver) loop(ctx context.Context, stop, done chan struct{}) {
	stepCtx := context.WithoutCancel(ctx)
	var err error
	defer func() {
		d.mu.Lock()
		d.running = false
		d.err = err
		d.mu.Unlock()
		close(done)
	}()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		var finished bool
		finished, err = d.step(stepCtx)
		if err != nil || finished {
			return
		}
	}
}

// Stop asks the loop to exit after the current step. It does not wait.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running && d.stop != nil {
		select {
		case <-d.stop:
		default:
			close(d.stop)
		}
	}
}

// Join blocks until the loop has exited and returns the error that ended
// it, if any. Join on a driver that was never started returns nil.
func (d *Driver) Join() error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Running reports whether a loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}
