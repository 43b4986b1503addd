package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	logx "github.com/nepthar/smart-party/pkg/logx"
)

// Loop runs an ordered collection of tasks at a fixed target frame rate.
//
// The loop is strictly single-threaded: Run, every task hook, Schedule and
// Unschedule all execute on the goroutine that called Run (re-entrant calls
// from inside a task's Tick are the supported way to mutate the schedule
// mid-run). Stop is the one exception: it only flips an atomic flag and is
// safe to call from anywhere.
type Loop struct {
	spf time.Duration // frame budget, always > 0
	log logx.Logger

	entries []*entry

	frame uint64        // completed tick cycles, starts at 0 each Run
	slack time.Duration // last frame's budget minus elapsed work; negative on overrun

	running atomic.Bool
	stopReq atomic.Bool

	overrun *logx.Throttle
}

// New builds a loop with the given target frame rate and optional initial
// task set. The rate must be positive.
func New(targetFPS float64, log logx.Logger, tasks ...Task) (*Loop, error) {
	if targetFPS <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRate, targetFPS)
	}
	l := &Loop{
		spf: time.Duration(float64(time.Second) / targetFPS),
		log: log.With(logx.String("comp", "eventloop")),
	}
	l.overrun = logx.NewThrottle(l.log, 1, 3)
	for _, t := range tasks {
		if err := l.Schedule(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// SecondsPerFrame returns the fixed frame budget.
func (l *Loop) SecondsPerFrame() time.Duration { return l.spf }

// Frame returns the number of completed tick cycles in the current run.
func (l *Loop) Frame() uint64 { return l.frame }

// SleepTime returns the last frame's slack: frame budget minus measured work
// time. Negative values mean the frame overran its budget.
func (l *Loop) SleepTime() time.Duration { return l.slack }

// Tasks returns the number of live tasks.
func (l *Loop) Tasks() int { return len(l.entries) }

// Schedule appends a task to the tail of the tick order. While the loop is
// running the task's setup hook runs eagerly, so a task added mid-run is
// ready for its first tick; it joins the tick pass starting with the next
// frame, never the current one. Before Run, setup is deferred to the bulk
// initialization pass.
func (l *Loop) Schedule(t Task) error {
	if t == nil {
		return ErrNilTask
	}
	if l.find(t) >= 0 {
		return fmt.Errorf("%w: %T", ErrAlreadyScheduled, t)
	}
	e := &entry{task: t}
	if l.running.Load() {
		if err := e.setup(l); err != nil {
			return err
		}
	}
	l.entries = append(l.entries, e)
	return nil
}

// Unschedule removes a task from the tick order. If the loop is running the
// task's finish hook is invoked before removal. Removing a task that is not
// scheduled returns ErrNotScheduled.
func (l *Loop) Unschedule(t Task) error {
	i := l.find(t)
	if i < 0 {
		return fmt.Errorf("%w: %T", ErrNotScheduled, t)
	}
	e := l.entries[i]
	var err error
	if l.running.Load() {
		err = e.finish(l)
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return err
}

func (l *Loop) find(t Task) int {
	for i, e := range l.entries {
		if e.task == t {
			return i
		}
	}
	return -1
}

// Stop requests a graceful shutdown. It takes effect at the next frame
// boundary: the in-flight frame, including its sleep, completes first.
func (l *Loop) Stop() { l.stopReq.Store(true) }

// Run drives the loop until Stop is called, ctx is canceled, or the last
// task signals completion. On every exit path all remaining tasks are
// finished exactly once, in registration order.
// The returned error aggregates anything collected along the way: a setup
// failure, per-frame tick errors, teardown errors.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	l.frame = 0
	l.slack = 0
	l.stopReq.Store(false)

	l.log.Info("running event loop",
		logx.Duration("frame_budget", l.spf),
		logx.Int("tasks", len(l.entries)))

	var errs []error

	if err := l.setupAll(l.entries); err != nil {
		// Partial initialization is worse than none: later tasks may depend
		// on ordering guarantees from earlier ones. Tear down and bail.
		errs = append(errs, err)
		errs = append(errs, l.finishAll()...)
		return errors.Join(errs...)
	}

	for !l.stopReq.Load() && ctx.Err() == nil && len(l.entries) > 0 {
		frameStart := time.Now()
		errs = append(errs, l.tickFrame()...)
		l.slack = l.spf - time.Since(frameStart)

		if len(l.entries) == 0 {
			// Every task signaled completion; there is nothing left to wait
			// for, so don't sleep out the final frame.
			break
		}

		if l.slack > 0 {
			l.pause(ctx, l.slack)
		} else {
			l.overrun.Warn("frame overran budget",
				logx.Uint64("frame", l.frame),
				logx.Duration("over_by", -l.slack))
		}
	}

	l.log.Info("event loop stopped", logx.Uint64("frames", l.frame))
	errs = append(errs, l.finishAll()...)
	return errors.Join(errs...)
}

// tickFrame runs one tick pass over a snapshot of the current task order,
// drops tasks that signaled completion and advances the frame counter.
func (l *Loop) tickFrame() []error {
	var errs []error

	// Tasks scheduled during this pass land in l.entries but not in the
	// snapshot, so they first tick next frame.
	snapshot := append([]*entry(nil), l.entries...)
	for _, e := range snapshot {
		if !e.state.alive() {
			// Unscheduled by a sibling earlier in this same pass.
			continue
		}
		cont, err := l.tickOne(e)
		if err != nil {
			errs = append(errs, err)
		}
		if !cont {
			if ferr := e.finish(l); ferr != nil {
				errs = append(errs, ferr)
			}
		}
	}

	// Compact, preserving relative order of survivors.
	live := make([]*entry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.state != StateFinished {
			live = append(live, e)
		}
	}
	l.entries = live

	l.frame++
	return errs
}

// tickOne ticks a single task with panic isolation. A panicking task stays
// scheduled; the failure is confined to its slot for this frame and the
// error surfaces after Run exits.
func (l *Loop) tickOne(e *entry) (cont bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			cont = true
			err = &TaskError{Op: "tick", Task: e.name(), Frame: l.frame, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if e.state == StateSetup {
		e.state = StateRunning
	}
	cont, terr := e.task.Tick()
	if terr != nil {
		err = &TaskError{Op: "tick", Task: e.name(), Frame: l.frame, Err: terr}
	}
	return cont, err
}

func (l *Loop) setupAll(entries []*entry) error {
	for _, e := range entries {
		if err := e.setup(l); err != nil {
			return err
		}
	}
	return nil
}

// finishAll tears down every remaining task in registration order. One
// task's finish failure never prevents the rest from finishing.
func (l *Loop) finishAll() []error {
	var errs []error
	for _, e := range l.entries {
		if err := l.finishOne(e); err != nil {
			errs = append(errs, err)
		}
	}
	l.entries = nil
	return errs
}

func (l *Loop) finishOne(e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{Op: "finish", Task: e.name(), Frame: l.frame, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return e.finish(l)
}

// pause sleeps out the rest of the frame budget. An explicit Stop lets the
// sleep complete (the stop flag is only checked at the frame boundary), but
// ctx cancellation cuts it short so an interrupt never waits on a timer.
func (l *Loop) pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
