//go:build unix || darwin || linux
// +build unix darwin linux

package driver

import (
	"os"
	"syscall"
)

// sendTermSignal sends SIGTERM for graceful shutdown on Unix.
func sendTermSignal(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	return proc.Signal(syscall.SIGTERM)
}
