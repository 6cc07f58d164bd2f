package queue

import (
	"context"
	"time"
)

// Batch is a group of jobs handed to one worker. Jobs inside a batch run
// serially, in order.
type Batch struct {
	Jobs    []Job
	Timeout time.Duration
}

// FinishFunc is invoked by a driver in the parent process when a dispatched
// batch completes, carrying the rehydrated results for every job in it.
type FinishFunc func(workerID string, results []Result)

// Driver is a pluggable execution backend selected at configuration time.
// Pooling, slot accounting and blocking-wait behavior belong to the driver
// (or the library it wraps), never to the queue.
type Driver interface {
	Name() string

	// Dispatch schedules a batch for execution. It must not block on the
	// batch itself; finish is called exactly once when the batch is done.
	Dispatch(ctx context.Context, batch Batch, finish FinishFunc) error

	// Shutdown waits for in-flight batches and releases driver resources.
	Shutdown(ctx context.Context) error
}
