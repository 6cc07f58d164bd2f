package queue

import "time"

// Job is a unit of work routed to a named handler. Payload interpretation
// is entirely up to the handler.
type Job struct {
	ID           string   `json:"id"`
	Handler      string   `json:"handler"`
	Payload      string   `json:"payload,omitempty"`
	TimeoutSec   int      `json:"timeout_sec,omitempty"`
	Retries      int      `json:"retries,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Timeout returns the per-job timeout, or zero when unset.
func (j Job) Timeout() time.Duration {
	if j.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(j.TimeoutSec) * time.Second
}

// Result captures the execution outcome of a single job.
type Result struct {
	JobID      string `json:"job_id"`
	WorkerID   string `json:"worker_id,omitempty"`
	Data       string `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Attempts   int    `json:"attempts,omitempty"`
}

// Failed reports whether the job ended in an error or nonzero exit code.
func (r Result) Failed() bool {
	return r.Error != "" || r.ExitCode != 0
}

// Duration returns the amount of time it took to run the job.
func (r Result) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}
