package app

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"forklift/internal/config"
	"forklift/internal/queue"
)

// runBatchMode reads a batch definition from stdin, runs every job through
// the configured driver, and prints the report.
func runBatchMode(cfg *config.Config, args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "ERROR: --batch reads its job configuration from stdin; no positional arguments are allowed.")
		fmt.Fprintln(os.Stderr, "Usage examples:")
		fmt.Fprintln(os.Stderr, "  forklift --batch < jobs.txt")
		fmt.Fprintln(os.Stderr, "  forklift --batch --full-output <<'EOF'  # include full job output")
		return 1
	}

	data, err := io.ReadAll(stdinReader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to read stdin: %v\n", err)
		return 1
	}

	jobs, err := parseBatchJobs(data)
	if err != nil {
		logError(err.Error())
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}
	logInfo(fmt.Sprintf("Parsed batch: %d job(s)", len(jobs)))

	results, code := runJobs(cfg, jobs)
	if results == nil {
		return code
	}

	fmt.Println(generateFinalOutputWithMode(results, !cfg.FullOutput))

	exitCode := 0
	for _, res := range results {
		if res.ExitCode != 0 {
			exitCode = res.ExitCode
		} else if res.Failed() {
			exitCode = 1
		}
	}
	return exitCode
}

// parseBatchJobs parses the stdin block format: jobs separated by ---JOB---,
// each with "key: value" meta lines, optionally followed by ---PAYLOAD--- and
// the raw payload.
func parseBatchJobs(data []byte) ([]queue.Job, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("batch config is empty")
	}

	blocks := strings.Split(string(trimmed), "---JOB---")
	var jobs []queue.Job
	seen := make(map[string]struct{})

	blockIndex := 0
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		blockIndex++

		meta := block
		payload := ""
		if parts := strings.SplitN(block, "---PAYLOAD---", 2); len(parts) == 2 {
			meta = strings.TrimSpace(parts[0])
			payload = strings.TrimSpace(parts[1])
		}

		var job queue.Job
		for _, line := range strings.Split(meta, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			kv := strings.SplitN(line, ":", 2)
			if len(kv) != 2 {
				continue
			}
			key := strings.TrimSpace(kv[0])
			value := strings.TrimSpace(kv[1])

			switch key {
			case "id":
				job.ID = value
			case "handler":
				job.Handler = value
			case "timeout":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("job block #%d has invalid timeout: %q", blockIndex, value)
				}
				job.TimeoutSec = n
			case "retries":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("job block #%d has invalid retries: %q", blockIndex, value)
				}
				job.Retries = n
			case "dependencies":
				for _, dep := range strings.Split(value, ",") {
					dep = strings.TrimSpace(dep)
					if dep != "" {
						job.Dependencies = append(job.Dependencies, dep)
					}
				}
			}
		}

		if job.ID == "" {
			return nil, fmt.Errorf("job block #%d missing id field", blockIndex)
		}
		if job.Handler == "" {
			return nil, fmt.Errorf("job block #%d (%q) missing handler field", blockIndex, job.ID)
		}
		if _, ok := queue.Handler(job.Handler); !ok {
			return nil, fmt.Errorf("job block #%d (%q) has unknown handler %q", blockIndex, job.ID, job.Handler)
		}
		if _, exists := seen[job.ID]; exists {
			return nil, fmt.Errorf("job block #%d has duplicate id: %s", blockIndex, job.ID)
		}

		job.Payload = payload
		jobs = append(jobs, job)
		seen[job.ID] = struct{}{}
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs found")
	}

	return jobs, nil
}
