package driver

import (
	"context"
	"fmt"

	"forklift/internal/queue"
	"forklift/internal/worker"

	"github.com/gammazero/workerpool"
)

// goroutinePool runs batches in-process on a gammazero pool. Same batch
// semantics as procpool (serial jobs, one worker id per batch) without the
// process boundary or serialization.
type goroutinePool struct {
	pool *workerpool.WorkerPool
}

func newGoroutinePool(opts Options) (queue.Driver, error) {
	return &goroutinePool{pool: workerpool.New(normalizeWorkers(opts.Workers))}, nil
}

func (g *goroutinePool) Name() string { return "goroutine" }

func (g *goroutinePool) Dispatch(ctx context.Context, batch queue.Batch, finish queue.FinishFunc) error {
	if len(batch.Jobs) == 0 {
		return fmt.Errorf("goroutine: empty batch")
	}
	if finish == nil {
		return fmt.Errorf("goroutine: nil finish callback")
	}

	workerID := newWorkerID()
	jobs := copyJobs(batch.Jobs)
	timeout := batch.Timeout

	g.pool.Submit(func() {
		runCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		results := make([]queue.Result, 0, len(jobs))
		worker.RunBatch(runCtx, workerID, jobs, func(_ int, res queue.Result) {
			results = append(results, res)
		})
		finish(workerID, results)
	})
	return nil
}

func (g *goroutinePool) Shutdown(ctx context.Context) error {
	return stopWait(ctx, g.pool.StopWait)
}
