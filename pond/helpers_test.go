package pond

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// quietLogger keeps expected task failures out of the test output.
func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// startPool creates and starts a pool, failing the test on error and
// draining it on cleanup.
func startPool(t *testing.T, opts ...Option) *Pool {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	p := New(opts...)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("failed to start pool: %v", err)
	}
	t.Cleanup(func() {
		_ = p.Shutdown(5 * time.Second)
	})
	return p
}

// gate blocks tasks until released, with a signal for when the task has
// actually started executing.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// blockingComputation returns a computation that signals g.started,
// waits for g.release, then returns v.
func blockingComputation(g *gate, v int) Computation[int] {
	return func(ctx context.Context) (int, error) {
		close(g.started)
		<-g.release
		return v, nil
	}
}
