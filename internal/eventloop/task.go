package eventloop

import (
	"fmt"
)

// State is a task's lifecycle stage as tracked by the owning loop.
type State int

const (
	StateNew State = iota
	StateSetup
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateSetup:
		return "setup"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// alive reports whether the task should still receive ticks.
// Setup and Running are operationally identical; the split only exists to
// gate the once-only Setup/Finish guards.
func (s State) alive() bool { return s == StateSetup || s == StateRunning }

// Task is the unit of work driven by a Loop.
//
// Tick performs one frame's worth of work and returns true to stay scheduled
// or false to be finished and dropped. A non-nil error from Tick does not
// unschedule the task by itself; it is collected and reported after the loop
// exits. Tick must not block: every millisecond spent here is taken from all
// other tasks in the frame.
type Task interface {
	// Setup prepares resources (e.g. opens a device stream). Called exactly
	// once before the first tick. A failure prevents the task from ever
	// being ticked and aborts the loop's bulk-setup phase.
	Setup() error

	// Tick runs one frame of work. Return false to stop: the loop then calls
	// Finish exactly once and permanently drops the task.
	Tick() (cont bool, err error)

	// Finish releases resources acquired in Setup. Called exactly once.
	Finish() error
}

// NopSetup can be embedded by tasks that need no resource acquisition.
type NopSetup struct{}

func (NopSetup) Setup() error  { return nil }
func (NopSetup) Finish() error { return nil }

// LoopAware is implemented by tasks that want read access to the owning
// loop's frame context (frame number, frame budget, last slack). The loop
// calls AttachLoop once, right before Setup. The reference is advisory and
// read-only; tasks must not use it to mutate the schedule of other tasks
// outside their own Tick.
type LoopAware interface {
	AttachLoop(*Loop)
}

// entry pairs a task with its loop-owned lifecycle state. All guards live
// here so Task implementations stay free of bookkeeping.
type entry struct {
	task  Task
	state State
}

func (e *entry) name() string { return fmt.Sprintf("%T", e.task) }

// setup runs the task's setup hook, once, only from StateNew.
func (e *entry) setup(l *Loop) error {
	if e.state != StateNew {
		return nil
	}
	if aw, ok := e.task.(LoopAware); ok {
		aw.AttachLoop(l)
	}
	if err := e.task.Setup(); err != nil {
		e.state = StateFinished
		return &TaskError{Op: "setup", Task: e.name(), Frame: l.frame, Err: err}
	}
	e.state = StateSetup
	return nil
}

// finish runs the task's finish hook, once, only while alive. A task whose
// setup never completed is not finished: it acquired nothing to release.
func (e *entry) finish(l *Loop) error {
	if !e.state.alive() {
		return nil
	}
	e.state = StateFinished
	if err := e.task.Finish(); err != nil {
		return &TaskError{Op: "finish", Task: e.name(), Frame: l.frame, Err: err}
	}
	return nil
}
