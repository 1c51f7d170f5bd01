package pond

import (
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Option is a functional option for configuring the pool.
type Option func(*config)

type config struct {
	workerCount  int
	queueDepth   int
	maxAttempts  int
	initialDelay time.Duration
	rateLimiter  *rate.Limiter
	log          logrus.FieldLogger
	onTaskEnd    func(id uuid.UUID, elapsed time.Duration, err error)
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		workerCount: runtime.GOMAXPROCS(0),
		queueDepth:  0, // set to workerCount if not specified
		maxAttempts: 1,
		log:         logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.queueDepth == 0 {
		cfg.queueDepth = cfg.workerCount
	}
	return cfg
}

// WithWorkerCount sets the number of concurrent workers.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkerCount(count int) Option {
	return func(cfg *config) {
		if count > 0 {
			cfg.workerCount = count
		}
	}
}

// WithQueueDepth sets the capacity of the pending-task queue. Submissions
// beyond this capacity fail with ErrQueueFull rather than blocking.
// If not specified, defaults to the number of workers.
func WithQueueDepth(depth int) Option {
	return func(cfg *config) {
		if depth > 0 {
			cfg.queueDepth = depth
		}
	}
}

// WithRetryPolicy re-invokes a failing task before its handle is marked
// failed. maxAttempts is the total number of attempts; initialDelay is
// the delay before the first retry, doubled on each subsequent retry.
// If not specified, no retries are performed.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			cfg.initialDelay = initialDelay
		}
	}
}

// WithRateLimit caps task dispatch throughput. tasksPerSecond is the
// sustained rate; burst is the maximum number of tasks dispatched in a
// burst. Useful when tasks call external services.
// If not specified, no rate limiting is applied.
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithLogger replaces the pool's logger. Defaults to
// logrus.StandardLogger().
func WithLogger(log logrus.FieldLogger) Option {
	return func(cfg *config) {
		if log != nil {
			cfg.log = log
		}
	}
}

// WithOnTaskEnd registers an observer invoked after every executed task
// with the handle ID, the execution duration, and the task error (nil on
// success). The observer runs on the worker goroutine; keep it cheap.
func WithOnTaskEnd(fn func(id uuid.UUID, elapsed time.Duration, err error)) Option {
	return func(cfg *config) {
		cfg.onTaskEnd = fn
	}
}
