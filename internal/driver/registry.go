// Package driver contains the pluggable execution backends a queue can be
// bound to. Drivers translate batch dispatches into the lifecycle of the
// mechanism they wrap (worker child processes for procpool, an in-process
// pool for goroutine) and hand results back through the finish callback.
package driver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"forklift/internal/queue"

	"github.com/google/uuid"
)

// Options configure driver construction.
type Options struct {
	// Workers bounds concurrent batches. Zero means defaultWorkers.
	Workers int

	// Command and Args define how procpool launches a worker child. Command
	// defaults to the current executable, Args to ["worker"]; the worker id
	// is appended as the final argument.
	Command string
	Args    []string
}

const defaultWorkers = 4

// Factory builds a driver from options.
type Factory func(opts Options) (queue.Driver, error)

var registry = map[string]Factory{
	"procpool":  newProcPool,
	"goroutine": newGoroutinePool,
	"serial":    newSerial,
}

// Select constructs the named driver. An empty name selects procpool.
func Select(name string, opts Options) (queue.Driver, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "procpool"
	}
	factory, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(opts)
}

// Names returns the registered driver names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Logging hooks wired up by the CLI; defaults discard.
var (
	logInfoFn = func(string) {}
	logWarnFn = func(string) {}
)

// SetLogFuncs configures optional logging hooks. Callers can safely pass nil
// to disable a hook.
func SetLogFuncs(infoFn, warnFn func(string)) {
	if infoFn != nil {
		logInfoFn = infoFn
	} else {
		logInfoFn = func(string) {}
	}
	if warnFn != nil {
		logWarnFn = warnFn
	} else {
		logWarnFn = func(string) {}
	}
}

// newWorkerID generates the opaque token correlating a dispatched batch with
// its finish callback. Var so tests can pin ids.
var newWorkerID = func() string {
	return uuid.NewString()
}

func normalizeWorkers(n int) int {
	if n <= 0 {
		return defaultWorkers
	}
	return n
}

func copyJobs(jobs []queue.Job) []queue.Job {
	out := make([]queue.Job, len(jobs))
	copy(out, jobs)
	return out
}

// stopWait runs the blocking stop function, honoring the context deadline.
func stopWait(ctx context.Context, stop func()) error {
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
