package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"forklift/internal/config"
	"forklift/internal/queue"
)

// runSingleMode runs one job given as "<handler> [payload]". A payload of
// "-" (or piped stdin with no payload argument) reads the payload from
// stdin.
func runSingleMode(cfg *config.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: handler required; usage: forklift [flags] <handler> [payload]")
		fmt.Fprintf(os.Stderr, "Available handlers: %s\n", strings.Join(queue.HandlerNames(), ", "))
		return 1
	}
	if len(args) > 2 {
		fmt.Fprintln(os.Stderr, "ERROR: too many arguments; usage: forklift [flags] <handler> [payload]")
		return 1
	}

	handlerName := strings.ToLower(strings.TrimSpace(args[0]))
	if _, ok := queue.Handler(handlerName); !ok {
		msg := fmt.Sprintf("unknown handler %q (available: %s)", args[0], strings.Join(queue.HandlerNames(), ", "))
		logError(msg)
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
		return 1
	}

	var payload string
	explicitStdin := len(args) > 1 && args[1] == "-"
	switch {
	case explicitStdin:
		logInfo("Explicit stdin mode: reading payload from stdin")
		data, err := io.ReadAll(stdinReader)
		if err != nil {
			logError("Failed to read stdin: " + err.Error())
			return 1
		}
		payload = string(data)
		if payload == "" {
			logError("Explicit stdin mode requires payload input from stdin")
			fmt.Fprintln(os.Stderr, "ERROR: explicit stdin mode requires payload input")
			return 1
		}
	case len(args) > 1:
		payload = args[1]
	case !isTerminal():
		data, err := io.ReadAll(stdinReader)
		if err != nil {
			logError("Failed to read piped stdin: " + err.Error())
			return 1
		}
		payload = string(data)
	}

	job := queue.Job{
		ID:         "job-1",
		Handler:    handlerName,
		Payload:    payload,
		TimeoutSec: cfg.TimeoutSec,
		Retries:    cfg.Retries,
	}
	logInfo(fmt.Sprintf("Parsed args: handler=%s, payload_len=%d, driver=%s", handlerName, len(payload), cfg.Driver))

	results, code := runJobs(cfg, []queue.Job{job})
	if len(results) != 1 {
		return code
	}

	res := results[0]
	if res.Failed() {
		logError(fmt.Sprintf("job failed: %s", res.Error))
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", res.Error)
		if res.ExitCode != 0 {
			return res.ExitCode
		}
		return 1
	}
	if res.Data != "" {
		fmt.Println(res.Data)
	}
	return 0
}
