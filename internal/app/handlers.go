package app

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"forklift/internal/queue"
)

var registerHandlersOnce sync.Once

// registerBuiltinHandlers installs the handlers the CLI ships with. Both the
// parent and the re-exec'd worker child call this, so a job dispatched by
// the parent always resolves in the child.
func registerBuiltinHandlers() {
	registerHandlersOnce.Do(func() {
		mustRegister("nop", func(ctx context.Context, payload string) (string, error) {
			return "", nil
		})

		mustRegister("print", func(ctx context.Context, payload string) (string, error) {
			return payload, nil
		})

		mustRegister("sleep", func(ctx context.Context, payload string) (string, error) {
			d, err := time.ParseDuration(strings.TrimSpace(payload))
			if err != nil {
				return "", fmt.Errorf("sleep: invalid duration %q", payload)
			}
			select {
			case <-time.After(d):
				return fmt.Sprintf("slept %s", d), nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})

		mustRegister("exec", func(ctx context.Context, payload string) (string, error) {
			payload = strings.TrimSpace(payload)
			if payload == "" {
				return "", fmt.Errorf("exec: empty command")
			}
			cmd := exec.CommandContext(ctx, "/bin/sh", "-c", payload)
			out, err := cmd.CombinedOutput()
			output := strings.TrimSpace(string(out))
			if err != nil {
				if output != "" {
					return output, fmt.Errorf("exec: %v: %s", err, output)
				}
				return output, fmt.Errorf("exec: %w", err)
			}
			return output, nil
		})
	})
}

func mustRegister(name string, fn queue.HandlerFunc) {
	if err := queue.RegisterHandler(name, fn); err != nil {
		panic(err)
	}
}
