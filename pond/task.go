package pond

import "context"

// Action is a unit of work with no result. It is submitted fire-and-forget
// via Pool.Execute; a returned error is logged by the pool, never propagated.
// The context is cancelled when the pool shuts down hard or when the task's
// handle requests cooperative cancellation.
type Action func(ctx context.Context) error

// Computation is a value-producing, fallible unit of work. It is submitted
// via Submit, which hands back a *Handle[T] for observing the result.
//
// Type parameters:
//   - T: The type of value the computation produces
type Computation[T any] func(ctx context.Context) (T, error)
