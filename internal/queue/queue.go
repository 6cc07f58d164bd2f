package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBatchSize is the number of jobs handed to a single worker
	// when no batch size is configured.
	DefaultBatchSize = 4

	// DefaultJobTimeout applies to jobs that carry no timeout of their own.
	DefaultJobTimeout = 300 * time.Second

	// batchGrace pads the batch deadline so a worker that is merely slow to
	// start is not confused with one that is stuck.
	batchGrace = 10 * time.Second
)

// Options configure a Queue.
type Options struct {
	BatchSize  int
	JobTimeout time.Duration

	// Retries is the retry budget applied to jobs that do not set one.
	// A job's zero Retries means "unset" and inherits this budget, so a
	// job cannot opt out of a nonzero queue-wide budget.
	Retries int
}

// Queue collects jobs and runs them through a Driver, one dependency layer
// at a time. It owns no pooling of its own.
type Queue struct {
	opts   Options
	driver Driver

	mu      sync.Mutex
	jobs    []Job
	ran     bool
	results map[string]Result
}

// New creates a Queue bound to the given driver.
func New(driver Driver, opts Options) (*Queue, error) {
	if driver == nil {
		return nil, fmt.Errorf("queue: nil driver")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Queue{
		opts:    opts,
		driver:  driver,
		results: make(map[string]Result),
	}, nil
}

// Driver returns the driver this queue dispatches through.
func (q *Queue) Driver() Driver { return q.driver }

// Push adds a job to the queue. Jobs can only be pushed before Run.
func (q *Queue) Push(job Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return fmt.Errorf("queue: job missing id")
	}
	if strings.TrimSpace(job.Handler) == "" {
		return fmt.Errorf("queue: job %q missing handler", job.ID)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ran {
		return fmt.Errorf("queue: cannot push after Run")
	}
	for _, existing := range q.jobs {
		if existing.ID == job.ID {
			return fmt.Errorf("queue: duplicate job id: %s", job.ID)
		}
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// PushAll pushes jobs in order, stopping at the first invalid one.
func (q *Queue) PushAll(jobs ...Job) error {
	for _, job := range jobs {
		if err := q.Push(job); err != nil {
			return err
		}
	}
	return nil
}

// Run executes every pushed job and returns one result per job, in push
// order. Dependency layers run sequentially; within a layer, jobs are split
// into batches and dispatched through the driver. A job whose batch dies
// still yields a synthesized failure result.
func (q *Queue) Run(ctx context.Context) ([]Result, error) {
	q.mu.Lock()
	if q.ran {
		q.mu.Unlock()
		return nil, fmt.Errorf("queue: Run called twice")
	}
	q.ran = true
	jobs := make([]Job, len(q.jobs))
	copy(jobs, q.jobs)
	q.mu.Unlock()

	if len(jobs) == 0 {
		return nil, nil
	}

	// Zero values mean "unset" for both fields; see Options.Retries.
	for i := range jobs {
		if jobs[i].TimeoutSec <= 0 {
			jobs[i].TimeoutSec = int(q.opts.JobTimeout / time.Second)
		}
		if jobs[i].Retries <= 0 {
			jobs[i].Retries = q.opts.Retries
		}
	}

	layers, err := sortLayers(jobs)
	if err != nil {
		return nil, err
	}

	for _, layer := range layers {
		if err := q.runLayer(ctx, layer); err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			break
		}
	}

	results := make([]Result, 0, len(jobs))
	q.mu.Lock()
	for _, job := range jobs {
		res, ok := q.results[job.ID]
		if !ok {
			res = Result{
				JobID:    job.ID,
				Error:    "no result reported for job",
				ExitCode: 1,
			}
			if ctx.Err() != nil {
				res.Error = ctx.Err().Error()
			}
		}
		results = append(results, res)
	}
	q.mu.Unlock()

	return results, nil
}

// Shutdown waits for in-flight work and releases the driver.
func (q *Queue) Shutdown(ctx context.Context) error {
	return q.driver.Shutdown(ctx)
}

func (q *Queue) runLayer(ctx context.Context, layer []Job) error {
	var wg sync.WaitGroup
	finish := func(workerID string, results []Result) {
		defer wg.Done()
		q.mu.Lock()
		defer q.mu.Unlock()
		for _, res := range results {
			if res.WorkerID == "" {
				res.WorkerID = workerID
			}
			// First result wins; a duplicate means the driver misbehaved.
			if _, dup := q.results[res.JobID]; !dup {
				q.results[res.JobID] = res
			}
		}
	}

	for start := 0; start < len(layer); start += q.opts.BatchSize {
		end := start + q.opts.BatchSize
		if end > len(layer) {
			end = len(layer)
		}
		chunk := layer[start:end]

		wg.Add(1)
		batch := Batch{Jobs: chunk, Timeout: batchTimeout(chunk)}
		if err := q.driver.Dispatch(ctx, batch, finish); err != nil {
			wg.Done()
			q.failBatch(chunk, err)
		}
	}

	wg.Wait()
	return nil
}

func (q *Queue) failBatch(jobs []Job, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range jobs {
		if _, dup := q.results[job.ID]; dup {
			continue
		}
		q.results[job.ID] = Result{
			JobID:    job.ID,
			Error:    fmt.Sprintf("dispatch failed: %v", err),
			ExitCode: 1,
		}
	}
}

// batchTimeout budgets for serial execution of every job in the batch.
func batchTimeout(jobs []Job) time.Duration {
	var total time.Duration
	for _, job := range jobs {
		total += job.Timeout()
	}
	if total <= 0 {
		return 0
	}
	return total + batchGrace
}
