package driver

import (
	"context"
	"fmt"

	"forklift/internal/queue"
	"forklift/internal/worker"
)

// serial runs the batch inline on the dispatching goroutine. Useful for
// tests and for debugging handlers without any pool in the way.
type serial struct{}

func newSerial(Options) (queue.Driver, error) {
	return serial{}, nil
}

func (serial) Name() string { return "serial" }

func (serial) Dispatch(ctx context.Context, batch queue.Batch, finish queue.FinishFunc) error {
	if len(batch.Jobs) == 0 {
		return fmt.Errorf("serial: empty batch")
	}
	if finish == nil {
		return fmt.Errorf("serial: nil finish callback")
	}

	workerID := newWorkerID()
	results := make([]queue.Result, 0, len(batch.Jobs))
	worker.RunBatch(ctx, workerID, batch.Jobs, func(_ int, res queue.Result) {
		results = append(results, res)
	})
	finish(workerID, results)
	return nil
}

func (serial) Shutdown(context.Context) error { return nil }
