package pond

import (
	"math"
	"time"
)

// calcBackoffDelay calculates the exponential backoff delay for retry
// attempts. attemptNumber is 0-indexed (0 = first retry, 1 = second
// retry, etc.); the delay doubles with each attempt:
// initialDelay * 2^attemptNumber.
func calcBackoffDelay(initialDelay time.Duration, attemptNumber int) time.Duration {
	if attemptNumber < 0 {
		return 0
	}

	backoffFactor := math.Pow(2, float64(attemptNumber))
	return time.Duration(float64(initialDelay) * backoffFactor)
}

// waitUntil blocks until either the done channel is closed or the
// timeout is reached. Used during graceful shutdown to wait for workers
// to finish their tasks.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	select {
	case <-d:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
