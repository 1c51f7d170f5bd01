// Package pond provides a bounded worker pool with future-based result
// delivery, cooperative cancellation, and a small combinator layer for
// composing asynchronous steps.
//
// The primary types are Pool, a fixed-size pool of workers draining a
// FIFO queue, and Handle[T], the write-once result handle returned for
// every submitted Computation. Handles support blocking retrieval,
// non-blocking completion callbacks, and cancellation; the combinators
// Map, FlatMap, Combine and Recover derive new handles from existing
// ones without polling or blocking.
//
// # Basic Usage
//
//	p := pond.New(pond.WithWorkerCount(4))
//	if err := p.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown(5 * time.Second)
//
//	h, err := pond.Submit(p, func(ctx context.Context) (int, error) {
//	    return 42, nil
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := h.Get()
//
// # Non-blocking Observation
//
// OnComplete registers a continuation that fires exactly once when the
// handle reaches a terminal state, on the goroutine that performs the
// completing transition:
//
//	h.OnComplete(func(o pond.Outcome[int]) {
//	    if o.Err != nil {
//	        log.Printf("task failed: %v", o.Err)
//	        return
//	    }
//	    log.Printf("got %d", o.Value)
//	})
//
// # Composition
//
// Combinators build dependency graphs over handles. Each derived handle
// completes when its inputs do; failure and cancellation propagate
// without invoking the combinator function:
//
//	doubled := pond.Map(h, func(v int) (int, error) { return v * 2, nil })
//	summed := pond.Combine(a, b, func(x, y int) (int, error) { return x + y, nil })
//	safe := pond.Recover(h, func(err error) (int, error) { return 0, nil })
//
// # Cancellation
//
// Cancel succeeds only while a task is still queued; the handle then
// resolves to Cancelled and the pool skips the task. Once a task is
// executing, Cancel cancels the context the task body received and
// returns false — long-running tasks should observe ctx.Done() and the
// task's natural outcome stands.
//
// # Shutdown
//
// Shutdown stops admissions and drains the queue; ShutdownNow stops
// admissions, resolves queued tasks to Cancelled, and lets in-flight
// tasks finish. Both wait for the workers to exit, bounded by a timeout.
//
// # Error Handling
//
// A task error (or panic, converted to an error with a stack trace)
// never escapes its worker. Get surfaces it as an *ExecutionError
// wrapping the cause; GetWithTimeout returns ErrGetTimeout on deadline
// without cancelling the task; a cancelled handle returns ErrCancelled.
//
// # Configuration Options
//
//   - WithWorkerCount(n): number of concurrent workers (default: GOMAXPROCS)
//   - WithQueueDepth(n): pending-queue capacity (default: worker count)
//   - WithRetryPolicy(maxAttempts, initialDelay): retry with exponential backoff
//   - WithRateLimit(tasksPerSecond, burst): cap dispatch throughput
//   - WithLogger(log): replace the default logrus logger
//   - WithOnTaskEnd(fn): per-task completion observer
//
// The package is designed to be small and idiomatic for Go 1.18+ (generics).
package pond
