// Package worker is the child-side runtime. The parent process (the procpool
// driver) re-execs the binary with the hidden worker subcommand, feeds a
// batch envelope on stdin, and reads result events from stdout.
package worker

import (
	"context"
	"fmt"
	"io"
	"time"

	"forklift/internal/queue"
	"forklift/internal/wire"

	"github.com/cenkalti/backoff"
)

// Exit codes reported by the worker process.
const (
	ExitOK         = 0
	ExitJobsFailed = 1
	ExitBadInput   = 2
)

// Sink receives the result of one job as soon as it finishes.
type Sink func(index int, res queue.Result)

// RunBatch executes jobs serially, in order, invoking sink after each one.
// It never stops early: a failed job still leaves the rest of the batch
// running, and every job produces exactly one result.
func RunBatch(ctx context.Context, workerID string, jobs []queue.Job, sink Sink) {
	for i, job := range jobs {
		res := runJob(ctx, job)
		res.WorkerID = workerID
		if sink != nil {
			sink(i, res)
		}
	}
}

// Main drives a worker process end to end: decode the envelope, run the
// batch, stream one job_done event per job plus a batch_done trailer.
func Main(ctx context.Context, stdin io.Reader, stdout io.Writer, logFn func(string)) int {
	if logFn == nil {
		logFn = func(string) {}
	}

	env, err := wire.DecodeEnvelope(stdin)
	if err != nil {
		logFn(fmt.Sprintf("worker: %v", err))
		return ExitBadInput
	}
	logFn(fmt.Sprintf("worker %s: running %d job(s)", env.WorkerID, len(env.Jobs)))

	failed := 0
	RunBatch(ctx, env.WorkerID, env.Jobs, func(index int, res queue.Result) {
		if res.Failed() {
			failed++
		}
		ev := wire.Event{
			Type:       wire.EventJobDone,
			Index:      index,
			Data:       res.Data,
			Error:      res.Error,
			ExitCode:   res.ExitCode,
			DurationMS: res.DurationMS,
			Attempts:   res.Attempts,
		}
		if err := wire.WriteEvent(stdout, ev); err != nil {
			logFn(fmt.Sprintf("worker %s: write event: %v", env.WorkerID, err))
		}
	})

	trailer := wire.Event{
		Type:     wire.EventBatchDone,
		WorkerID: env.WorkerID,
		Count:    len(env.Jobs),
	}
	if err := wire.WriteEvent(stdout, trailer); err != nil {
		logFn(fmt.Sprintf("worker %s: write trailer: %v", env.WorkerID, err))
	}

	if failed > 0 {
		logFn(fmt.Sprintf("worker %s: %d job(s) failed", env.WorkerID, failed))
		return ExitJobsFailed
	}
	return ExitOK
}

func runJob(ctx context.Context, job queue.Job) queue.Result {
	start := time.Now()
	res := queue.Result{JobID: job.ID}

	fn, ok := queue.Handler(job.Handler)
	if !ok {
		res.Error = fmt.Sprintf("unknown handler %q", job.Handler)
		res.ExitCode = 1
		res.DurationMS = time.Since(start).Milliseconds()
		return res
	}

	jobCtx := ctx
	var cancel context.CancelFunc
	if t := job.Timeout(); t > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	attempts := 0
	var data string
	op := func() error {
		attempts++
		out, err := invoke(jobCtx, fn, job.Payload)
		if err != nil {
			return err
		}
		data = out
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), uint64(job.Retries)),
		jobCtx,
	)

	err := backoff.Retry(op, policy)
	res.DurationMS = time.Since(start).Milliseconds()
	res.Attempts = attempts
	if err != nil {
		if jobCtx.Err() == context.DeadlineExceeded {
			err = context.DeadlineExceeded
		}
		res.Error = err.Error()
		res.ExitCode = 1
		return res
	}
	res.Data = data
	return res
}

// invoke shields the batch from a panicking handler.
func invoke(ctx context.Context, fn queue.HandlerFunc, payload string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, payload)
}

// newBackOff is a hook for tests that cannot afford real retry intervals.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}
