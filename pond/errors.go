package pond

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolNotStarted is returned when tasks are submitted before Start.
	ErrPoolNotStarted = errors.New("pool not started")

	// ErrPoolStarted is returned when Start is called on a running pool.
	ErrPoolStarted = errors.New("pool already started")

	// ErrPoolClosed is returned when tasks are submitted after shutdown.
	ErrPoolClosed = errors.New("pool shut down")

	// ErrQueueFull is returned when the pending-task queue is at capacity.
	ErrQueueFull = errors.New("task queue is full")

	// ErrCancelled is surfaced by Get on a handle that was cancelled
	// before its task started executing.
	ErrCancelled = errors.New("task was cancelled")

	// ErrGetTimeout is returned by GetWithTimeout when the deadline
	// elapses before the handle reaches a terminal state. The underlying
	// task keeps running; call Cancel to abandon it.
	ErrGetTimeout = errors.New("handle.GetWithTimeout timeout")

	// ErrShutdownTimeout is returned when workers do not finish draining
	// within the shutdown timeout.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)

// ExecutionError wraps the error raised inside a task body. Get never
// returns the raw task error directly; callers unwrap with errors.Is/As.
type ExecutionError struct {
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task execution failed: %v", e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// IsExecutionError reports whether err is (or wraps) an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
