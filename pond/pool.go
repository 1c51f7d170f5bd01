package pond

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/taskpond/taskpond/internal/metrics"
)

// Pool is a long-running, bounded worker pool. It owns a fixed set of
// worker goroutines and a FIFO queue of pending tasks; at most
// workerCount tasks execute concurrently. Create with New, launch with
// Start, then submit work with Submit or Execute.
//
// A task error never crashes a worker: it is recorded on the task's
// handle and the worker immediately becomes eligible for the next task.
type Pool struct {
	conf *config
	log  logrus.FieldLogger

	mu      sync.RWMutex
	started atomic.Bool
	closed  atomic.Bool
	discard atomic.Bool

	baseCtx context.Context
	cancel  context.CancelFunc
	tasks   chan *taskEntry
	done    chan struct{} // closed when all workers have exited
}

// taskEntry is the unit placed on the pending queue. run executes the
// task on a worker; abandon resolves a queued-but-unstarted task as
// cancelled when the queue is being discarded.
type taskEntry struct {
	id      uuid.UUID
	run     func()
	abandon func()
}

// New creates an unstarted pool. No workers run until Start is called.
//
// Example:
//
//	p := pond.New(pond.WithWorkerCount(4), pond.WithQueueDepth(32))
//	_ = p.Start(ctx)
//	defer p.Shutdown(5 * time.Second)
func New(opts ...Option) *Pool {
	cfg := newConfig(opts...)
	return &Pool{
		conf: cfg,
		log:  cfg.log,
	}
}

// Start launches the worker goroutines. The given context bounds the
// pool's lifetime: when it is cancelled, workers stop dequeuing and
// in-flight task contexts are cancelled. Starting an already-started
// pool returns ErrPoolStarted.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started.Load() {
		return ErrPoolStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	p.baseCtx = ctx
	p.cancel = cancel
	p.tasks = make(chan *taskEntry, p.conf.queueDepth)
	p.done = make(chan struct{})
	p.started.Store(true)

	var g errgroup.Group
	for i := range p.conf.workerCount {
		g.Go(func() error {
			return p.worker(ctx, int64(i))
		})
	}

	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	p.log.WithFields(logrus.Fields{
		"workers":     p.conf.workerCount,
		"queue_depth": p.conf.queueDepth,
	}).Info("pool started")
	return nil
}

// Submit hands a Computation to the pool and returns its result handle.
// It never blocks: if the pending queue is at capacity the submission
// fails with ErrQueueFull. Tasks are dequeued in submission order.
//
// Example:
//
//	h, err := pond.Submit(p, func(ctx context.Context) (int, error) {
//	    return expensiveCount(ctx)
//	})
//	if err != nil {
//	    return err
//	}
//	n, err := h.Get()
func Submit[T any](p *Pool, comp Computation[T]) (*Handle[T], error) {
	base, err := p.admissionCtx()
	if err != nil {
		return nil, err
	}

	taskCtx, cancelTask := context.WithCancel(base)
	h := newHandle[T](cancelTask)
	enqueued := time.Now()

	e := &taskEntry{
		id: h.id,
		run: func() {
			if !h.claim() {
				// cancelled while queued
				metrics.TasksFinished.WithLabelValues(metrics.OutcomeCancelled).Inc()
				cancelTask()
				return
			}
			metrics.TasksActive.Inc()
			metrics.QueueWait.Observe(time.Since(enqueued).Seconds())

			start := time.Now()
			v, taskErr := runComputation(taskCtx, p.conf, comp)
			elapsed := time.Since(start)
			cancelTask()

			metrics.TasksActive.Dec()
			metrics.TaskDuration.Observe(elapsed.Seconds())
			if p.conf.onTaskEnd != nil {
				p.conf.onTaskEnd(h.id, elapsed, taskErr)
			}

			if taskErr != nil {
				metrics.TasksFinished.WithLabelValues(metrics.OutcomeFailed).Inc()
				p.log.WithField("task_id", h.id).WithError(taskErr).Warn("computation failed")
				h.fail(taskErr)
				return
			}
			metrics.TasksFinished.WithLabelValues(metrics.OutcomeCompleted).Inc()
			h.complete(v)
		},
		abandon: func() {
			if h.cancelQueued() {
				metrics.TasksFinished.WithLabelValues(metrics.OutcomeCancelled).Inc()
			}
			cancelTask()
		},
	}

	if err := p.enqueue(e); err != nil {
		cancelTask()
		return nil, err
	}
	return h, nil
}

// Execute hands an Action to the pool fire-and-forget. Admission rules
// match Submit; there is no handle, and an action error is logged rather
// than propagated.
func (p *Pool) Execute(action Action) error {
	base, err := p.admissionCtx()
	if err != nil {
		return err
	}

	id := uuid.New()
	taskCtx, cancelTask := context.WithCancel(base)
	enqueued := time.Now()

	e := &taskEntry{
		id: id,
		run: func() {
			defer cancelTask()
			metrics.TasksActive.Inc()
			metrics.QueueWait.Observe(time.Since(enqueued).Seconds())

			start := time.Now()
			actErr := runAction(taskCtx, p.conf, action)
			elapsed := time.Since(start)

			metrics.TasksActive.Dec()
			metrics.TaskDuration.Observe(elapsed.Seconds())
			if p.conf.onTaskEnd != nil {
				p.conf.onTaskEnd(id, elapsed, actErr)
			}

			if actErr != nil {
				metrics.TasksFinished.WithLabelValues(metrics.OutcomeFailed).Inc()
				p.log.WithField("task_id", id).WithError(actErr).Warn("action failed")
				return
			}
			metrics.TasksFinished.WithLabelValues(metrics.OutcomeCompleted).Inc()
		},
		abandon: func() {
			cancelTask()
			metrics.TasksFinished.WithLabelValues(metrics.OutcomeCancelled).Inc()
			p.log.WithField("task_id", id).Debug("queued action discarded")
		},
	}

	return p.enqueue(e)
}

// Shutdown stops admissions and drains: every queued task still runs,
// in-flight tasks finish, and Shutdown waits for the workers to exit
// (bounded by timeout; 0 waits forever).
func (p *Pool) Shutdown(timeout time.Duration) error {
	return p.stop(false, timeout)
}

// ShutdownNow stops admissions and discards the queue: tasks that have
// not started resolve to Cancelled, while in-flight tasks run to their
// natural completion.
func (p *Pool) ShutdownNow(timeout time.Duration) error {
	return p.stop(true, timeout)
}

func (p *Pool) stop(discard bool, timeout time.Duration) error {
	p.mu.Lock()
	if !p.started.Load() {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if !p.closed.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if discard {
		p.discard.Store(true)
	}
	// Workers drain the closed channel and exit; in discard mode they
	// abandon the remaining entries instead of running them.
	close(p.tasks)
	p.mu.Unlock()

	p.log.WithField("discard", discard).Info("pool shutting down")
	err := waitUntil(p.done, timeout)
	p.cancel()
	return err
}

// admissionCtx checks admission and returns the context new task
// contexts derive from.
func (p *Pool) admissionCtx() (context.Context, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started.Load() {
		return nil, ErrPoolNotStarted
	}
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	return p.baseCtx, nil
}

// enqueue places an entry on the pending queue without blocking. The
// read lock excludes the close(p.tasks) in stop, so a send can never hit
// a closed channel.
func (p *Pool) enqueue(e *taskEntry) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed.Load() {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- e:
		metrics.TasksSubmitted.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}
