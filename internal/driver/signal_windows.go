//go:build windows
// +build windows

package driver

import "os"

// sendTermSignal falls back to Kill; Windows has no SIGTERM delivery.
func sendTermSignal(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	return proc.Kill()
}
