package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forklift/internal/worker"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// newWorkerCommand is the hidden child-process entry point used by the
// procpool driver. The worker id argument exists for ps/debug correlation;
// the authoritative id travels in the stdin envelope.
func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "worker <worker_id>",
		Hidden:        true,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := runWorkerMode(args[0])
			if code == 0 {
				return nil
			}
			return exitError{code: code}
		},
	}
}

func runWorkerMode(workerID string) int {
	registerBuiltinHandlers()

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly, NoColor: true}).
		With().Timestamp().Str("worker", workerID).Logger()

	// SIGTERM from the parent cancels in-flight handlers; the events written
	// so far have already been flushed line by line.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return worker.Main(ctx, stdinReader, os.Stdout, func(msg string) {
		zl.Info().Msg(msg)
	})
}
