package pond

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestHandle_Get_Success(t *testing.T) {
	p := startPool(t, WithWorkerCount(2))

	h, err := Submit(p, func(ctx context.Context) (string, error) {
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	v, err := h.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "hello" {
		t.Errorf("expected %q, got %q", "hello", v)
	}
	if h.State() != StateCompleted {
		t.Errorf("expected state %v, got %v", StateCompleted, h.State())
	}
}

func TestHandle_Get_ReturnsSameResultTwice(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))

	h, err := Submit(p, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	v1, err1 := h.Get()
	v2, err2 := h.Get()
	if v1 != v2 || !errors.Is(err1, err2) && (err1 != nil || err2 != nil) {
		t.Errorf("Get calls disagree: (%v, %v) vs (%v, %v)", v1, err1, v2, err2)
	}
}

func TestHandle_Get_FailureIsWrapped(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))
	cause := errors.New("boom")

	h, err := Submit(p, func(ctx context.Context) (int, error) {
		return 0, cause
	})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	_, err = h.Get()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsExecutionError(err) {
		t.Errorf("expected *ExecutionError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected error chain to contain %v, got %v", cause, err)
	}
	if errors.Is(err, ErrCancelled) {
		t.Errorf("failure must not look like cancellation: %v", err)
	}
	if h.State() != StateFailed {
		t.Errorf("expected state %v, got %v", StateFailed, h.State())
	}
}

func TestHandle_GetWithTimeout(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))
	g := newGate()

	h, err := Submit(p, blockingComputation(g, 9))
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	<-g.started

	_, err = h.GetWithTimeout(20 * time.Millisecond)
	if !errors.Is(err, ErrGetTimeout) {
		t.Fatalf("expected ErrGetTimeout, got %v", err)
	}

	// A timed-out Get must not cancel the underlying task.
	if h.State() != StateRunning {
		t.Errorf("expected state %v after timeout, got %v", StateRunning, h.State())
	}

	close(g.release)
	v, err := h.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 9 {
		t.Errorf("expected 9, got %d", v)
	}
}

func TestHandle_OnComplete_FiresExactlyOnce(t *testing.T) {
	p := startPool(t, WithWorkerCount(2))

	h, err := Submit(p, func(ctx context.Context) (int, error) {
		return 3, nil
	})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	var fired atomic.Int32
	done := make(chan Outcome[int], 1)
	h.OnComplete(func(o Outcome[int]) {
		fired.Add(1)
		done <- o
	})

	select {
	case o := <-done:
		if o.Err != nil {
			t.Errorf("unexpected error outcome: %v", o.Err)
		}
		if o.Value != 3 {
			t.Errorf("expected 3, got %d", o.Value)
		}
		if o.State != StateCompleted {
			t.Errorf("expected state %v, got %v", StateCompleted, o.State)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}

	// Give a double-fire a chance to show up.
	time.Sleep(20 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Errorf("callback fired %d times, want 1", n)
	}
}

func TestHandle_OnComplete_AfterTerminalFiresImmediately(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))

	h, err := Submit(p, func(ctx context.Context) (int, error) {
		return 11, nil
	})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	if _, err := h.Get(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fires synchronously on the registering goroutine.
	var got Outcome[int]
	fired := false
	h.OnComplete(func(o Outcome[int]) {
		got = o
		fired = true
	})
	if !fired {
		t.Fatal("late registration did not fire immediately")
	}
	if got.Value != 11 || got.State != StateCompleted {
		t.Errorf("unexpected outcome: %+v", got)
	}
}

func TestHandle_OnComplete_RegistrationOrder(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))
	g := newGate()

	h, err := Submit(p, blockingComputation(g, 1))
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	<-g.started

	var mu sync.Mutex
	var order []int
	collected := make(chan struct{})
	for i := 1; i <= 3; i++ {
		h.OnComplete(func(Outcome[int]) {
			mu.Lock()
			order = append(order, i)
			if len(order) == 3 {
				close(collected)
			}
			mu.Unlock()
		})
	}

	close(g.release)
	select {
	case <-collected:
	case <-time.After(time.Second):
		t.Fatal("callbacks never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i+1 {
			t.Fatalf("callbacks fired out of registration order: %v", order)
		}
	}
}

func TestHandle_Cancel_Queued(t *testing.T) {
	p := startPool(t, WithWorkerCount(1), WithQueueDepth(4))
	g := newGate()

	blocker, err := Submit(p, blockingComputation(g, 0))
	if err != nil {
		t.Fatalf("failed to submit blocker: %v", err)
	}
	<-g.started

	queued, err := Submit(p, func(ctx context.Context) (int, error) {
		return 1, nil
	})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	if !queued.Cancel() {
		t.Fatal("Cancel on a queued task should return true")
	}
	if queued.State() != StateCancelled {
		t.Errorf("expected state %v, got %v", StateCancelled, queued.State())
	}
	if _, err := queued.Get(); !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}

	// Second cancel is a no-op.
	if queued.Cancel() {
		t.Error("Cancel on a cancelled handle should return false")
	}

	close(g.release)
	if _, err := blocker.Get(); err != nil {
		t.Fatalf("blocker failed: %v", err)
	}
}

func TestHandle_Cancel_RunningIsAdvisory(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))
	g := newGate()

	h, err := Submit(p, blockingComputation(g, 5))
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	<-g.started

	if h.Cancel() {
		t.Fatal("Cancel on a running task should return false")
	}

	// The task ignores its context, so its natural outcome stands.
	close(g.release)
	v, err := h.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Errorf("expected 5, got %d", v)
	}
}

func TestHandle_Cancel_RunningCancelsTaskContext(t *testing.T) {
	p := startPool(t, WithWorkerCount(1))

	started := make(chan struct{})
	h, err := Submit(p, func(ctx context.Context) (int, error) {
		close(started)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 1, nil
		}
	})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	<-started

	if h.Cancel() {
		t.Fatal("Cancel on a running task should return false")
	}

	// The task observed the cancelled context and returned an error,
	// which is its natural outcome: Failed, not Cancelled.
	_, err = h.Get()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if h.State() != StateFailed {
		t.Errorf("expected state %v, got %v", StateFailed, h.State())
	}
}

func TestHandle_ConcurrentObserversSeeSameOutcome(t *testing.T) {
	p := startPool(t, WithWorkerCount(2))
	g := newGate()

	h, err := Submit(p, blockingComputation(g, 42))
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	const observers = 16
	results := make(chan int, observers)
	var wg sync.WaitGroup
	for range observers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := h.Get()
			if err != nil {
				t.Errorf("observer got error: %v", err)
				return
			}
			results <- v
		}()
	}

	<-g.started
	close(g.release)
	wg.Wait()
	close(results)

	count := 0
	for v := range results {
		count++
		if v != 42 {
			t.Errorf("observer saw %d, want 42", v)
		}
	}
	if count != observers {
		t.Errorf("expected %d observations, got %d", observers, count)
	}
}

func TestHandle_CancelRacesCompletion(t *testing.T) {
	p := startPool(t, WithWorkerCount(4), WithQueueDepth(64))

	// Hammer the Pending->Running vs Pending->Cancelled race; exactly
	// one terminal state must win each time.
	for range 50 {
		h, err := Submit(p, func(ctx context.Context) (int, error) {
			return 1, nil
		})
		if err != nil {
			t.Fatalf("failed to submit: %v", err)
		}
		h.Cancel()
		<-h.Done()

		st := h.State()
		_, gerr := h.Get()
		switch st {
		case StateCompleted:
			if gerr != nil {
				t.Fatalf("completed handle returned error: %v", gerr)
			}
		case StateCancelled:
			if !errors.Is(gerr, ErrCancelled) {
				t.Fatalf("cancelled handle returned %v", gerr)
			}
		default:
			t.Fatalf("unexpected terminal state %v", st)
		}
	}
}
