package pond

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State describes where a handle is in its lifecycle. A handle starts
// Pending, moves to Running when a worker claims it, and reaches exactly
// one of the terminal states. There is no transition out of a terminal
// state.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

// Terminal reports whether s is one of Completed, Failed or Cancelled.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result delivered to OnComplete observers.
// Err is nil for Completed, an *ExecutionError for Failed, and
// ErrCancelled for Cancelled.
//
// Type parameters:
//   - T: The value type produced on success
type Outcome[T any] struct {
	Value T
	Err   error
	State State
}

// Handle is the result handle for a submitted Computation. It is written
// exactly once, by whichever goroutine performs the terminal transition,
// and may be read by any number of observers. All observers see the same
// outcome.
//
// Type parameters:
//   - T: The value type produced by the underlying computation
type Handle[T any] struct {
	id    uuid.UUID
	state atomic.Int32

	mu        sync.Mutex
	value     T
	err       error
	callbacks []func(Outcome[T])
	done      chan struct{}

	// cancelTask cancels the task's derived context. Set for handles
	// owned by a pool; nil for derived (combinator) handles.
	cancelTask context.CancelFunc
}

func newHandle[T any](cancelTask context.CancelFunc) *Handle[T] {
	return &Handle[T]{
		id:         uuid.New(),
		done:       make(chan struct{}),
		cancelTask: cancelTask,
	}
}

func newDerived[T any]() *Handle[T] {
	return newHandle[T](nil)
}

// ID returns the unique identifier assigned to this handle at submission.
func (h *Handle[T]) ID() uuid.UUID {
	return h.id
}

// State returns the handle's current lifecycle state.
func (h *Handle[T]) State() State {
	return State(h.state.Load())
}

// Done returns a channel that is closed when the handle reaches a
// terminal state.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Get blocks until the handle reaches a terminal state and returns the
// value, or an *ExecutionError if the task failed, or ErrCancelled if it
// was cancelled before starting.
func (h *Handle[T]) Get() (T, error) {
	<-h.done
	return h.value, h.err
}

// GetWithTimeout is Get with a deadline. It returns ErrGetTimeout if the
// handle is still pending when the timeout elapses; the underlying task
// is not cancelled by a timed-out Get.
func (h *Handle[T]) GetWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-time.After(timeout):
		var zero T
		return zero, ErrGetTimeout
	}
}

// OnComplete registers fn to be invoked exactly once when the handle
// reaches any terminal state. Callbacks fire in registration order on the
// goroutine that performs the terminal transition. If the handle is
// already terminal, fn fires immediately on the calling goroutine.
// OnComplete never blocks on the task itself.
func (h *Handle[T]) OnComplete(fn func(Outcome[T])) {
	h.mu.Lock()
	if h.State().Terminal() {
		out := Outcome[T]{Value: h.value, Err: h.err, State: h.State()}
		h.mu.Unlock()
		fn(out)
		return
	}
	h.callbacks = append(h.callbacks, fn)
	h.mu.Unlock()
}

// Cancel attempts to move the handle from Pending to Cancelled. It
// returns true only if the task had not started executing; the task is
// then skipped by the pool. On a task that is already running, Cancel is
// advisory: the task's context is cancelled for it to observe, Cancel
// returns false, and the task's natural outcome stands.
func (h *Handle[T]) Cancel() bool {
	h.mu.Lock()
	st := h.State()
	if st != StatePending {
		h.mu.Unlock()
		if st == StateRunning && h.cancelTask != nil {
			h.cancelTask()
		}
		return false
	}
	cbs, out := h.finalizeLocked(StateCancelled, *new(T), ErrCancelled)
	h.mu.Unlock()
	dispatch(cbs, out)
	return true
}

// claim moves the handle from Pending to Running. Called by the worker
// that dequeued the task; a false return means the task was cancelled
// while queued and must be skipped.
func (h *Handle[T]) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.State() != StatePending {
		return false
	}
	h.state.Store(int32(StateRunning))
	return true
}

func (h *Handle[T]) complete(v T) bool {
	return h.transition(StateCompleted, v, nil)
}

// fail records the task error, wrapped so callers never see the raw
// error type from Get.
func (h *Handle[T]) fail(cause error) bool {
	var zero T
	return h.transition(StateFailed, zero, &ExecutionError{Cause: cause})
}

// adopt copies an upstream terminal state onto this handle, keeping the
// upstream error as-is. Used by combinators to propagate failure and
// cancellation without re-wrapping.
func (h *Handle[T]) adopt(st State, err error) bool {
	var zero T
	return h.transition(st, zero, err)
}

// cancelQueued is the pool-internal Cancelled transition used when a
// queued task is discarded during shutdown. Unlike Cancel it never
// touches the task context of a running task.
func (h *Handle[T]) cancelQueued() bool {
	var zero T
	return h.transition(StateCancelled, zero, ErrCancelled)
}

// transition performs the single terminal transition. Exactly one caller
// wins; the rest observe a false return and change nothing.
func (h *Handle[T]) transition(to State, v T, err error) bool {
	h.mu.Lock()
	if h.State().Terminal() {
		h.mu.Unlock()
		return false
	}
	cbs, out := h.finalizeLocked(to, v, err)
	h.mu.Unlock()
	dispatch(cbs, out)
	return true
}

func (h *Handle[T]) finalizeLocked(to State, v T, err error) ([]func(Outcome[T]), Outcome[T]) {
	h.value = v
	h.err = err
	h.state.Store(int32(to))
	close(h.done)
	cbs := h.callbacks
	h.callbacks = nil
	return cbs, Outcome[T]{Value: v, Err: err, State: to}
}

// dispatch drains the registered continuations in registration order,
// outside the handle lock so a callback may register further callbacks
// on other handles.
func dispatch[T any](cbs []func(Outcome[T]), out Outcome[T]) {
	for _, cb := range cbs {
		cb(out)
	}
}
