package driver

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	ilogger "forklift/internal/logger"
	"forklift/internal/queue"
	"forklift/internal/wire"

	"github.com/gammazero/workerpool"
)

// procPool runs each batch in a worker child process. Slot accounting and
// blocking-wait belong to the wrapped pool; the driver's own job is the
// translation: generate a worker id, stash the batch under it, launch the
// child, and turn its serialized output back into results.
type procPool struct {
	pool    *workerpool.WorkerPool
	command string
	args    []string

	mu    sync.Mutex
	stash map[string][]queue.Job
}

func newProcPool(opts Options) (queue.Driver, error) {
	command := opts.Command
	if command == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("procpool: resolve executable: %w", err)
		}
		command = exe
	}
	args := opts.Args
	if len(args) == 0 {
		args = []string{"worker"}
	}

	return &procPool{
		pool:    workerpool.New(normalizeWorkers(opts.Workers)),
		command: command,
		args:    args,
		stash:   make(map[string][]queue.Job),
	}, nil
}

func (p *procPool) Name() string { return "procpool" }

func (p *procPool) Dispatch(ctx context.Context, batch queue.Batch, finish queue.FinishFunc) error {
	if len(batch.Jobs) == 0 {
		return fmt.Errorf("procpool: empty batch")
	}
	if finish == nil {
		return fmt.Errorf("procpool: nil finish callback")
	}

	workerID := newWorkerID()
	if err := p.stashJobs(workerID, batch.Jobs); err != nil {
		return err
	}

	p.pool.Submit(func() {
		results := p.runWorker(ctx, workerID, batch.Timeout)
		p.unstash(workerID)
		finish(workerID, results)
	})
	return nil
}

func (p *procPool) Shutdown(ctx context.Context) error {
	return stopWait(ctx, p.pool.StopWait)
}

// stashJobs records the batch under its worker id. The id stays reserved
// until the finish callback fires.
func (p *procPool) stashJobs(workerID string, jobs []queue.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, inflight := p.stash[workerID]; inflight {
		return fmt.Errorf("procpool: worker id %s already in flight", workerID)
	}
	p.stash[workerID] = copyJobs(jobs)
	return nil
}

func (p *procPool) stashedJobs(workerID string) []queue.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stash[workerID]
}

func (p *procPool) unstash(workerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stash, workerID)
}

// runWorker launches one child, feeds it the batch envelope, and collects
// job_done events off its stdout until it exits.
func (p *procPool) runWorker(ctx context.Context, workerID string, timeout time.Duration) []queue.Result {
	jobs := p.stashedJobs(workerID)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append(append([]string{}, p.args...), workerID)
	cmd := newCommandRunner(ctx, p.command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return failBatch(workerID, jobs, fmt.Errorf("stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return failBatch(workerID, jobs, fmt.Errorf("stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return failBatch(workerID, jobs, fmt.Errorf("stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return failBatch(workerID, jobs, fmt.Errorf("start worker: %w", err))
	}
	logInfoFn(fmt.Sprintf("worker %s: pid %d, %d job(s)", workerID, cmd.Pid(), len(jobs)))

	go func() {
		if err := wire.EncodeEnvelope(stdin, wire.Envelope{WorkerID: workerID, Jobs: jobs}); err != nil {
			logWarnFn(fmt.Sprintf("worker %s: write envelope: %v", workerID, err))
		}
		_ = stdin.Close()
	}()

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			logInfoFn(fmt.Sprintf("worker %s: %s", workerID, scanner.Text()))
		}
	}()

	events := make(map[int]wire.Event, len(jobs))
	scanErr := wire.ScanEvents(stdout, func(ev wire.Event) {
		if ev.Type == wire.EventJobDone {
			events[ev.Index] = ev
		}
	}, func(msg string) {
		logWarnFn(fmt.Sprintf("worker %s: %s", workerID, msg))
	})

	<-stderrDone
	waitErr := cmd.Wait()
	pid := cmd.Pid()

	runErr := scanErr
	if runErr == nil {
		runErr = waitErr
	}
	if ctx.Err() == context.DeadlineExceeded {
		runErr = fmt.Errorf("batch deadline exceeded")
		if pid > 0 && ilogger.IsProcessRunning(pid) {
			logWarnFn(fmt.Sprintf("worker %s: pid %d still running after kill", workerID, pid))
		}
	}
	if waitErr != nil {
		logInfoFn(fmt.Sprintf("worker %s: exited with code %d", workerID, cmd.ExitCode()))
	}

	return rehydrate(workerID, jobs, events, cmd.ExitCode(), runErr)
}

// rehydrate zips stashed job ids back onto the serialized results read from
// the child, by envelope index. The stash is authoritative for ids; a job
// the child never reported gets a synthesized failure.
func rehydrate(workerID string, jobs []queue.Job, events map[int]wire.Event, exitCode int, runErr error) []queue.Result {
	results := make([]queue.Result, 0, len(jobs))
	for i, job := range jobs {
		ev, ok := events[i]
		if !ok {
			msg := "worker exited before running job"
			if runErr != nil {
				msg = fmt.Sprintf("worker failed: %v", runErr)
			}
			code := exitCode
			if code == 0 {
				code = 1
			}
			results = append(results, queue.Result{
				JobID:    job.ID,
				WorkerID: workerID,
				Error:    msg,
				ExitCode: code,
			})
			continue
		}
		results = append(results, queue.Result{
			JobID:      job.ID,
			WorkerID:   workerID,
			Data:       ev.Data,
			Error:      ev.Error,
			ExitCode:   ev.ExitCode,
			DurationMS: ev.DurationMS,
			Attempts:   ev.Attempts,
		})
	}
	return results
}

func failBatch(workerID string, jobs []queue.Job, err error) []queue.Result {
	logWarnFn(fmt.Sprintf("worker %s: %v", workerID, err))
	results := make([]queue.Result, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, queue.Result{
			JobID:    job.ID,
			WorkerID: workerID,
			Error:    err.Error(),
			ExitCode: 1,
		})
	}
	return results
}
