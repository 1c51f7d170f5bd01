package pond

import (
	"errors"
	"fmt"
	"sync"
)

// The combinators below derive new handles from existing ones. They are
// non-blocking to construct: each registers a continuation on its
// upstream handle(s) and returns immediately. The derived handle
// completes on whichever goroutine performs the upstream terminal
// transition. A panic inside a combinator function is caught and
// recorded as a failure on the derived handle, never re-thrown on the
// completing goroutine.

// Map derives a handle that completes with fn(value) when h completes
// successfully. Failure and cancellation propagate without invoking fn,
// preserving the upstream error.
func Map[T, U any](h *Handle[T], fn func(T) (U, error)) *Handle[U] {
	d := newDerived[U]()
	h.OnComplete(func(o Outcome[T]) {
		if o.State != StateCompleted {
			d.adopt(o.State, o.Err)
			return
		}
		v, err := applySafe(fn, o.Value)
		if err != nil {
			d.fail(err)
			return
		}
		d.complete(v)
	})
	return d
}

// FlatMap derives a handle for a dependent asynchronous step: on
// successful completion of h, fn produces a second handle whose terminal
// state the derived handle adopts. Upstream failure and cancellation
// propagate without invoking fn.
func FlatMap[T, U any](h *Handle[T], fn func(T) *Handle[U]) *Handle[U] {
	d := newDerived[U]()
	h.OnComplete(func(o Outcome[T]) {
		if o.State != StateCompleted {
			d.adopt(o.State, o.Err)
			return
		}
		inner, err := applySafe(func(v T) (*Handle[U], error) {
			return fn(v), nil
		}, o.Value)
		if err != nil {
			d.fail(err)
			return
		}
		if inner == nil {
			d.fail(errors.New("flatmap function returned nil handle"))
			return
		}
		inner.OnComplete(func(io Outcome[U]) {
			if io.State != StateCompleted {
				d.adopt(io.State, io.Err)
				return
			}
			d.complete(io.Value)
		})
	})
	return d
}

// Combine derives a handle that completes with fn(a, b) once both inputs
// have completed successfully, in either arrival order. If either input
// fails or is cancelled, the derived handle adopts that outcome; when
// both end non-successfully, the first outcome to reach the derived
// handle's terminal transition wins and the other is a no-op.
func Combine[A, B, U any](ha *Handle[A], hb *Handle[B], fn func(A, B) (U, error)) *Handle[U] {
	d := newDerived[U]()

	var (
		mu      sync.Mutex
		av      A
		bv      B
		arrived int
	)

	fire := func() {
		v, err := applySafe2(fn, av, bv)
		if err != nil {
			d.fail(err)
			return
		}
		d.complete(v)
	}

	ha.OnComplete(func(o Outcome[A]) {
		if o.State != StateCompleted {
			d.adopt(o.State, o.Err)
			return
		}
		mu.Lock()
		av = o.Value
		arrived++
		both := arrived == 2
		mu.Unlock()
		if both {
			fire()
		}
	})

	hb.OnComplete(func(o Outcome[B]) {
		if o.State != StateCompleted {
			d.adopt(o.State, o.Err)
			return
		}
		mu.Lock()
		bv = o.Value
		arrived++
		both := arrived == 2
		mu.Unlock()
		if both {
			fire()
		}
	})

	return d
}

// Recover derives a handle that converts failure into a fallback value:
// on Failed, the derived handle completes with fn(cause), where cause is
// the original task error unwrapped from its ExecutionError. Completed
// and Cancelled pass through unchanged.
func Recover[T any](h *Handle[T], fn func(error) (T, error)) *Handle[T] {
	d := newDerived[T]()
	h.OnComplete(func(o Outcome[T]) {
		if o.State == StateCompleted {
			d.complete(o.Value)
			return
		}
		if o.State == StateCancelled {
			d.adopt(o.State, o.Err)
			return
		}
		cause := o.Err
		var ee *ExecutionError
		if errors.As(cause, &ee) {
			cause = ee.Cause
		}
		v, err := applySafe(fn, cause)
		if err != nil {
			d.fail(err)
			return
		}
		d.complete(v)
	})
	return d
}

// CollectAll blocks until every handle is terminal and returns the
// values in handle order, or the first non-success outcome encountered.
func CollectAll[T any](hs []*Handle[T]) ([]T, error) {
	out := make([]T, len(hs))
	for i, h := range hs {
		v, err := h.Get()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// applySafe invokes fn with panic recovery so a combinator function can
// never escape onto the completing goroutine.
func applySafe[T, U any](fn func(T) (U, error), v T) (result U, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("combinator panic: %v", r)
		}
	}()
	return fn(v)
}

func applySafe2[A, B, U any](fn func(A, B) (U, error), a A, b B) (result U, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("combinator panic: %v", r)
		}
	}()
	return fn(a, b)
}
