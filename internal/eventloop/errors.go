package eventloop

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRate      = errors.New("eventloop: target frame rate must be positive")
	ErrNilTask          = errors.New("eventloop: nil task")
	ErrAlreadyScheduled = errors.New("eventloop: task already scheduled")
	ErrNotScheduled     = errors.New("eventloop: task not scheduled")
	ErrAlreadyRunning   = errors.New("eventloop: loop already running")
)

// TaskError wraps an error raised by a task hook with enough context to
// identify the offending slot after Run returns.
type TaskError struct {
	Op    string // "setup", "tick" or "finish"
	Task  string
	Frame uint64
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s %s (frame %d): %v", e.Op, e.Task, e.Frame, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
