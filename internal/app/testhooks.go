package app

import (
	"io"
	"os"

	"forklift/internal/driver"
	"forklift/internal/queue"

	"github.com/mattn/go-isatty"
)

var (
	exitFn         = os.Exit
	stdinReader    io.Reader = os.Stdin
	selectDriverFn           = driver.Select
)

// isTerminal reports whether stdin is attached to a terminal (i.e. nothing
// is being piped in).
var isTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func SetExitFn(fn func(int)) (restore func()) {
	prev := exitFn
	if fn != nil {
		exitFn = fn
	} else {
		exitFn = os.Exit
	}
	return func() { exitFn = prev }
}

func SetStdinReader(r io.Reader) (restore func()) {
	prev := stdinReader
	if r != nil {
		stdinReader = r
	} else {
		stdinReader = os.Stdin
	}
	return func() { stdinReader = prev }
}

func SetSelectDriverFn(fn func(string, driver.Options) (queue.Driver, error)) (restore func()) {
	prev := selectDriverFn
	if fn != nil {
		selectDriverFn = fn
	} else {
		selectDriverFn = driver.Select
	}
	return func() { selectDriverFn = prev }
}

func SetIsTerminalFn(fn func() bool) (restore func()) {
	prev := isTerminal
	if fn != nil {
		isTerminal = fn
	}
	return func() { isTerminal = prev }
}
