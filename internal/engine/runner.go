package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// ErrStopped is returned by Do once the runner has exited.
var ErrStopped = errors.New("runner stopped")

type op struct {
	fn   func(*Simulation)
	done chan error
}

// Runner owns a Simulation on a single goroutine. Frames and submitted
// operations are executed one at a time, so the session never sees
// concurrent mutation.
type Runner struct {
	sim      *Simulation
	Interval time.Duration // time between frames

	ops     chan op
	stopped chan struct{}
}

// NewRunner creates a runner driving sim at fps frames per second.
func NewRunner(sim *Simulation, fps int) *Runner {
	if fps <= 0 {
		fps = 60
	}
	return &Runner{
		sim:      sim,
		Interval: time.Second / time.Duration(fps),
		ops:      make(chan op),
		stopped:  make(chan struct{}),
	}
}

// Run drives frames until ctx is cancelled or a frame panics. Blocks.
// A frame panic is an invariant violation: the runner stops for good and
// returns it as an error. Panics in operations submitted through Do are
// returned to the caller and leave the runner running.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("simulation runner started", "interval", r.Interval, "speed", r.sim.Clock.Speed())
	defer close(r.stopped)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation runner stopped", "frames", r.sim.Frames, "day", r.sim.Clock.DaysSinceStart())
			return nil
		case o := <-r.ops:
			o.done <- r.exec(o.fn)
		case <-ticker.C:
			if err := r.exec(func(s *Simulation) { s.Frame() }); err != nil {
				slog.Error("simulation halted", "frame", r.sim.Frames, "day", r.sim.Clock.DaysSinceStart(), "error", err)
				return fmt.Errorf("frame %d: %w", r.sim.Frames, err)
			}
		}
	}
}

// Do runs fn on the simulation goroutine between frames and waits for it.
func (r *Runner) Do(ctx context.Context, fn func(*Simulation)) error {
	o := op{fn: fn, done: make(chan error, 1)}
	select {
	case r.ops <- o:
	case <-r.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-o.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exec runs fn and reports a panic as an error.
func (r *Runner) exec(fn func(*Simulation)) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("simulation panic: %v", p)
			slog.Debug("simulation panic", "stack", string(debug.Stack()))
		}
	}()
	fn(r.sim)
	return nil
}
