package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"forklift/internal/config"
	"forklift/internal/driver"
	"forklift/internal/queue"
)

const shutdownTimeout = 30 * time.Second

// runJobs pushes jobs into a fresh queue bound to the configured driver and
// waits for every result.
func runJobs(cfg *config.Config, jobs []queue.Job) ([]queue.Result, int) {
	drv, err := selectDriverFn(cfg.Driver, driver.Options{Workers: cfg.Workers})
	if err != nil {
		logError(err.Error())
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return nil, 1
	}
	logInfo(fmt.Sprintf("Selected driver: %s (workers=%d, batch_size=%d)", drv.Name(), cfg.Workers, cfg.BatchSize))

	q, err := queue.New(drv, queue.Options{
		BatchSize:  cfg.BatchSize,
		JobTimeout: time.Duration(cfg.TimeoutSec) * time.Second,
		Retries:    cfg.Retries,
	})
	if err != nil {
		logError(err.Error())
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return nil, 1
	}

	if err := q.PushAll(jobs...); err != nil {
		logError(err.Error())
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return nil, 1
	}

	results, err := q.Run(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := q.Shutdown(shutdownCtx); shutdownErr != nil {
		logWarn(fmt.Sprintf("driver shutdown: %v", shutdownErr))
	}

	if err != nil {
		logError(err.Error())
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return nil, 1
	}
	return results, 0
}
