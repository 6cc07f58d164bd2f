package driver

import (
	"context"
	"os/exec"
)

type CommandRunner = commandRunner

func SetForceKillDelay(seconds int32) (restore func()) {
	prev := forceKillDelay.Load()
	forceKillDelay.Store(seconds)
	return func() { forceKillDelay.Store(prev) }
}

func SetCommandContextFn(fn func(context.Context, string, ...string) *exec.Cmd) (restore func()) {
	prev := commandContext
	if fn != nil {
		commandContext = fn
	} else {
		commandContext = exec.CommandContext
	}
	return func() { commandContext = prev }
}

func SetNewCommandRunner(fn func(context.Context, string, ...string) CommandRunner) (restore func()) {
	prev := newCommandRunner
	if fn != nil {
		newCommandRunner = fn
	} else {
		newCommandRunner = defaultNewCommandRunner
	}
	return func() { newCommandRunner = prev }
}

func SetWorkerIDFn(fn func() string) (restore func()) {
	prev := newWorkerID
	if fn != nil {
		newWorkerID = fn
	}
	return func() { newWorkerID = prev }
}
