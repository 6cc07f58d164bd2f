// Package wire defines the JSON frames exchanged between the parent process
// and a worker child: a batch envelope on the child's stdin, line-delimited
// result events on its stdout.
package wire

import (
	"fmt"
	"io"

	"forklift/internal/queue"

	"github.com/goccy/go-json"
)

// Event types emitted by a worker child.
const (
	EventJobDone   = "job_done"
	EventBatchDone = "batch_done"
)

// Envelope frames the batch of jobs sent to one worker process.
type Envelope struct {
	WorkerID string      `json:"worker_id"`
	Jobs     []queue.Job `json:"jobs"`
}

// Event is a single line on the worker's stdout. Job results are keyed by
// index into the envelope's job list; the parent re-attaches job ids from
// its own stash rather than trusting the child.
type Event struct {
	Type       string `json:"type"`
	Index      int    `json:"index"`
	Data       string `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	ExitCode   int    `json:"exit_code,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`

	// batch_done trailer fields.
	WorkerID string `json:"worker_id,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// EncodeEnvelope writes the envelope as a single JSON document.
func EncodeEnvelope(w io.Writer, env Envelope) error {
	return json.NewEncoder(w).Encode(env)
}

// DecodeEnvelope reads one envelope from r.
func DecodeEnvelope(r io.Reader) (Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode batch envelope: %w", err)
	}
	if env.WorkerID == "" {
		return Envelope{}, fmt.Errorf("batch envelope missing worker_id")
	}
	if len(env.Jobs) == 0 {
		return Envelope{}, fmt.Errorf("batch envelope has no jobs")
	}
	return env, nil
}

// WriteEvent emits one event as a JSON line.
func WriteEvent(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
