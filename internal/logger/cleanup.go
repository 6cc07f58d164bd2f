package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Test hooks; production code never swaps these.
var (
	processRunningCheck = isProcessRunning
	processStartTimeFn  = getProcessStartTime
	removeLogFileFn     = os.Remove
	globLogFiles        = filepath.Glob
	fileStatFn          = os.Lstat
)

// maxOrphanAge is how long a log file with an unidentifiable owner may live.
const maxOrphanAge = 24 * time.Hour

// CleanupStats summarizes one CleanupOldLogs pass.
type CleanupStats struct {
	Scanned int
	Deleted int
	Kept    int
	Errors  int

	DeletedFiles []string
	KeptFiles    []string
}

// CleanupOldLogs removes forklift log files whose owning process is gone.
// A file is stale when its embedded pid no longer runs, or when the pid was
// recycled (the live process started after the file was last written).
// Decisions are conservative: inspection failures keep the file.
func CleanupOldLogs() (CleanupStats, error) {
	var stats CleanupStats

	pattern := filepath.Join(os.TempDir(), ToolName+"-*.log")
	matches, err := globLogFiles(pattern)
	if err != nil {
		return stats, fmt.Errorf("glob %s: %w", pattern, err)
	}

	ownPid := os.Getpid()
	for _, path := range matches {
		stats.Scanned++

		pid, ok := pidFromLogName(filepath.Base(path))
		info, statErr := fileStatFn(path)
		if statErr != nil {
			stats.Errors++
			continue
		}
		if !info.Mode().IsRegular() {
			stats.Kept++
			stats.KeptFiles = append(stats.KeptFiles, path)
			continue
		}

		if !ok {
			// No pid in the name; only reap clearly ancient files.
			if time.Since(info.ModTime()) > maxOrphanAge {
				stats.remove(path)
			} else {
				stats.keep(path)
			}
			continue
		}

		if pid == ownPid {
			stats.keep(path)
			continue
		}

		if !processRunningCheck(pid) {
			stats.remove(path)
			continue
		}

		// The pid is alive, but it may be a recycled pid owning nothing.
		if start := processStartTimeFn(pid); !start.IsZero() && start.After(info.ModTime()) {
			stats.remove(path)
			continue
		}

		stats.keep(path)
	}

	return stats, nil
}

func (s *CleanupStats) remove(path string) {
	if err := removeLogFileFn(path); err != nil && !os.IsNotExist(err) {
		s.Errors++
		return
	}
	s.Deleted++
	s.DeletedFiles = append(s.DeletedFiles, path)
}

func (s *CleanupStats) keep(path string) {
	s.Kept++
	s.KeptFiles = append(s.KeptFiles, path)
}

// pidFromLogName extracts the pid from "forklift-<pid>[-suffix].log".
func pidFromLogName(name string) (int, bool) {
	name = strings.TrimSuffix(name, ".log")
	rest, found := strings.CutPrefix(name, ToolName+"-")
	if !found || rest == "" {
		return 0, false
	}
	pidPart := rest
	if idx := strings.IndexByte(rest, '-'); idx >= 0 {
		pidPart = rest[:idx]
	}
	pid, err := strconv.Atoi(pidPart)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
