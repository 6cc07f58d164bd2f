package driver

import (
	"context"
	"io"
	"os/exec"
	"sync/atomic"
	"time"
)

// commandRunner abstracts *exec.Cmd so tests can substitute a fake child.
type commandRunner interface {
	Start() error
	Wait() error
	StdinPipe() (io.WriteCloser, error)
	StdoutPipe() (io.ReadCloser, error)
	StderrPipe() (io.ReadCloser, error)
	ExitCode() int
	Pid() int
}

// forceKillDelay is the grace period, in seconds, between SIGTERM on context
// cancellation and the SIGKILL the runtime follows up with.
var forceKillDelay atomic.Int32

func init() {
	forceKillDelay.Store(10)
}

var commandContext = exec.CommandContext

func defaultNewCommandRunner(ctx context.Context, name string, args ...string) commandRunner {
	cmd := commandContext(ctx, name, args...)
	cmd.Cancel = func() error {
		return sendTermSignal(cmd.Process)
	}
	cmd.WaitDelay = time.Duration(forceKillDelay.Load()) * time.Second
	return &realCmd{cmd: cmd}
}

var newCommandRunner = defaultNewCommandRunner

type realCmd struct {
	cmd *exec.Cmd
}

func (r *realCmd) Start() error { return r.cmd.Start() }
func (r *realCmd) Wait() error  { return r.cmd.Wait() }

func (r *realCmd) StdinPipe() (io.WriteCloser, error)  { return r.cmd.StdinPipe() }
func (r *realCmd) StdoutPipe() (io.ReadCloser, error)  { return r.cmd.StdoutPipe() }
func (r *realCmd) StderrPipe() (io.ReadCloser, error)  { return r.cmd.StderrPipe() }

func (r *realCmd) ExitCode() int {
	if r.cmd.ProcessState == nil {
		return -1
	}
	return r.cmd.ProcessState.ExitCode()
}

func (r *realCmd) Pid() int {
	if r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}
