package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeDriver runs every dispatched job inline and records batch shapes.
type fakeDriver struct {
	mu       sync.Mutex
	batches  [][]string
	dropJobs map[string]bool // jobs to silently omit from results
	failWith error
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) Dispatch(ctx context.Context, batch Batch, finish FinishFunc) error {
	if d.failWith != nil {
		return d.failWith
	}

	var ids []string
	var results []Result
	for _, job := range batch.Jobs {
		ids = append(ids, job.ID)
		if d.dropJobs[job.ID] {
			continue
		}
		results = append(results, Result{JobID: job.ID, Data: "done:" + job.ID})
	}

	d.mu.Lock()
	d.batches = append(d.batches, ids)
	d.mu.Unlock()

	finish("fake-worker", results)
	return nil
}

func (d *fakeDriver) Shutdown(context.Context) error { return nil }

func TestQueueRunReturnsResultsInPushOrder(t *testing.T) {
	drv := &fakeDriver{}
	q, err := New(drv, Options{BatchSize: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := q.PushAll(
		Job{ID: "c", Handler: "nop"},
		Job{ID: "a", Handler: "nop"},
		Job{ID: "b", Handler: "nop"},
	); err != nil {
		t.Fatalf("PushAll() error = %v", err)
	}

	results, err := q.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"c", "a", "b"} {
		if results[i].JobID != want {
			t.Fatalf("result #%d = %s, want %s", i, results[i].JobID, want)
		}
		if results[i].WorkerID != "fake-worker" {
			t.Fatalf("result #%d missing worker id", i)
		}
	}
}

func TestQueueBatchSizeChunking(t *testing.T) {
	drv := &fakeDriver{}
	q, err := New(drv, Options{BatchSize: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := q.Push(Job{ID: fmt.Sprintf("job-%d", i), Handler: "nop"}); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
	}

	if _, err := q.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	drv.mu.Lock()
	defer drv.mu.Unlock()
	if len(drv.batches) != 3 {
		t.Fatalf("expected 3 batches for 5 jobs with batch size 2, got %d: %v", len(drv.batches), drv.batches)
	}
}

func TestQueueSynthesizesResultForDroppedJob(t *testing.T) {
	drv := &fakeDriver{dropJobs: map[string]bool{"lost": true}}
	q, err := New(drv, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := q.PushAll(Job{ID: "ok", Handler: "nop"}, Job{ID: "lost", Handler: "nop"}); err != nil {
		t.Fatalf("PushAll() error = %v", err)
	}

	results, err := q.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var lost Result
	for _, res := range results {
		if res.JobID == "lost" {
			lost = res
		}
	}
	if !lost.Failed() {
		t.Fatalf("dropped job should yield a synthesized failure, got %+v", lost)
	}
	if !strings.Contains(lost.Error, "no result") {
		t.Fatalf("unexpected synthesized error: %q", lost.Error)
	}
}

func TestQueueDispatchErrorFailsBatch(t *testing.T) {
	drv := &fakeDriver{failWith: fmt.Errorf("pool is gone")}
	q, err := New(drv, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := q.Push(Job{ID: "a", Handler: "nop"}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	results, err := q.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 || !results[0].Failed() {
		t.Fatalf("expected one failed result, got %+v", results)
	}
	if !strings.Contains(results[0].Error, "pool is gone") {
		t.Fatalf("dispatch error not propagated: %q", results[0].Error)
	}
}

func TestQueuePushValidation(t *testing.T) {
	q, err := New(&fakeDriver{}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := q.Push(Job{Handler: "nop"}); err == nil {
		t.Fatal("expected error for job without id")
	}
	if err := q.Push(Job{ID: "a"}); err == nil {
		t.Fatal("expected error for job without handler")
	}
	if err := q.Push(Job{ID: "a", Handler: "nop"}); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := q.Push(Job{ID: "a", Handler: "nop"}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestQueueRunTwiceFails(t *testing.T) {
	q, err := New(&fakeDriver{}, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := q.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if _, err := q.Run(context.Background()); err == nil {
		t.Fatal("second Run() should fail")
	}
	if err := q.Push(Job{ID: "late", Handler: "nop"}); err == nil {
		t.Fatal("Push after Run should fail")
	}
}

func TestQueueDefaultsAppliedToJobs(t *testing.T) {
	var captured []Job
	drv := &captureDriver{onBatch: func(jobs []Job) { captured = append(captured, jobs...) }}

	q, err := New(drv, Options{JobTimeout: 7 * time.Second, Retries: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := q.PushAll(
		Job{ID: "defaulted", Handler: "nop"},
		Job{ID: "explicit", Handler: "nop", TimeoutSec: 42, Retries: 5},
		Job{ID: "zero-retries", Handler: "nop", Retries: 0},
	); err != nil {
		t.Fatalf("PushAll() error = %v", err)
	}
	if _, err := q.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	byID := map[string]Job{}
	for _, job := range captured {
		byID[job.ID] = job
	}
	if got := byID["defaulted"]; got.TimeoutSec != 7 || got.Retries != 2 {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got := byID["explicit"]; got.TimeoutSec != 42 || got.Retries != 5 {
		t.Fatalf("explicit values overridden: %+v", got)
	}
	// Zero retries is indistinguishable from unset and inherits the budget.
	if got := byID["zero-retries"]; got.Retries != 2 {
		t.Fatalf("zero retries should inherit the queue budget: %+v", got)
	}
}

type captureDriver struct {
	onBatch func([]Job)
}

func (d *captureDriver) Name() string { return "capture" }

func (d *captureDriver) Dispatch(ctx context.Context, batch Batch, finish FinishFunc) error {
	d.onBatch(batch.Jobs)
	results := make([]Result, 0, len(batch.Jobs))
	for _, job := range batch.Jobs {
		results = append(results, Result{JobID: job.ID})
	}
	finish("capture-worker", results)
	return nil
}

func (d *captureDriver) Shutdown(context.Context) error { return nil }
