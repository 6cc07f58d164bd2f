package app

import (
	"fmt"
	"strings"

	"forklift/internal/queue"
	"forklift/internal/utils"
)

const summaryOutputLimit = 150

// generateFinalOutput renders the default (summarized) batch report.
func generateFinalOutput(results []queue.Result) string {
	return generateFinalOutputWithMode(results, true)
}

// generateFinalOutputWithMode renders the batch report. With summaryOnly,
// job output is sanitized and truncated to one short line each.
func generateFinalOutputWithMode(results []queue.Result, summaryOnly bool) string {
	var b strings.Builder
	b.WriteString("=== Batch Results ===\n")

	ok, failed := 0, 0
	for _, res := range results {
		if res.Failed() {
			failed++
			b.WriteString(fmt.Sprintf("[fail] %s (worker=%s, %s", res.JobID, shortWorkerID(res.WorkerID), res.Duration()))
			if res.Attempts > 1 {
				b.WriteString(fmt.Sprintf(", attempts=%d", res.Attempts))
			}
			b.WriteString(")\n")
			if res.Error != "" {
				b.WriteString("       " + utils.SafeTruncate(utils.SanitizeOutput(res.Error), summaryOutputLimit) + "\n")
			}
			continue
		}

		ok++
		b.WriteString(fmt.Sprintf("[ok]   %s (worker=%s, %s", res.JobID, shortWorkerID(res.WorkerID), res.Duration()))
		if res.Attempts > 1 {
			b.WriteString(fmt.Sprintf(", attempts=%d", res.Attempts))
		}
		b.WriteString(")\n")

		if res.Data == "" {
			continue
		}
		if summaryOnly {
			if line := utils.FirstLine(utils.SanitizeOutput(res.Data)); line != "" {
				b.WriteString("       " + utils.SafeTruncate(line, summaryOutputLimit) + "\n")
			}
		} else {
			for _, line := range strings.Split(utils.SanitizeOutput(res.Data), "\n") {
				b.WriteString("       " + line + "\n")
			}
		}
	}

	b.WriteString(fmt.Sprintf("\n%d job(s): %d ok, %d failed", len(results), ok, failed))
	return b.String()
}

// shortWorkerID trims uuids down to their first group for readability.
func shortWorkerID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	if id == "" {
		return "?"
	}
	return id
}
