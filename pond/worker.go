package pond

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// worker is the loop run by each of the pool's goroutines. It dequeues
// entries in FIFO order and runs each to completion before accepting the
// next. Exits when the queue is closed and drained, or when the pool
// context is cancelled.
func (p *Pool) worker(ctx context.Context, workerID int64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-p.tasks:
			if !ok {
				return nil
			}
			if p.discard.Load() {
				e.abandon()
				continue
			}
			if p.conf.rateLimiter != nil {
				if err := p.conf.rateLimiter.Wait(ctx); err != nil {
					e.abandon()
					return err
				}
			}
			e.run()
		}
	}
}

// runComputation executes a computation with panic recovery and retry.
// A panic is converted to an error with a stack trace so a single task
// can never take down its worker. Retries use exponential backoff when
// an initial delay is configured; a panic aborts remaining attempts.
func runComputation[T any](ctx context.Context, cfg *config, comp Computation[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("task panic: %v\nstack trace:\n%s", r, buf[:n])
		}
	}()

	maxAttempts := max(cfg.maxAttempts, 1)

	for attempt := range maxAttempts {
		if attempt > 0 && cfg.initialDelay > 0 {
			backoffDelay := calcBackoffDelay(cfg.initialDelay, attempt-1)
			select {
			case <-time.After(backoffDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		result, err = comp(ctx)
		if err == nil {
			return result, nil
		}
	}

	return result, err
}

// runAction executes an Action through the same recovery and retry path
// as computations.
func runAction(ctx context.Context, cfg *config, action Action) error {
	_, err := runComputation(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, action(ctx)
	})
	return err
}
