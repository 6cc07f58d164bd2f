// Package logger provides the per-process diagnostic log file. The parent
// writes structured entries via zerolog; stale files left behind by dead
// processes are reaped by CleanupOldLogs.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ToolName is the fixed name for this tool, used as the log file prefix.
const ToolName = "forklift"

// PrimaryLogPrefix returns the filename prefix for log files.
func PrimaryLogPrefix() string { return ToolName }

const recentRingSize = 64

// Logger writes structured entries to a per-process file and keeps a small
// ring of recent warnings/errors for exit diagnostics.
type Logger struct {
	mu     sync.Mutex
	zl     zerolog.Logger
	file   *os.File
	path   string
	recent []string
}

// NewLogger creates the default log file: $TMPDIR/forklift-<pid>.log.
func NewLogger() (*Logger, error) {
	return NewLoggerWithSuffix("")
}

// NewLoggerWithSuffix creates $TMPDIR/forklift-<pid>-<suffix>.log. The suffix
// is sanitized; an empty result falls back to the default name.
func NewLoggerWithSuffix(suffix string) (*Logger, error) {
	pid := os.Getpid()
	name := fmt.Sprintf("%s-%d.log", ToolName, pid)
	if s := SanitizeLogSuffix(suffix); s != "" {
		name = fmt.Sprintf("%s-%d-%s.log", ToolName, pid, s)
	}
	path := filepath.Join(os.TempDir(), name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	zl := zerolog.New(file).With().Timestamp().Int("pid", pid).Logger()
	return &Logger{zl: zl, file: file, path: path}, nil
}

// SetLevel adjusts the minimum level written to the file. Unknown levels are
// ignored.
func (l *Logger) SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Level(lvl)
}

func (l *Logger) Debug(msg string) { l.log(zerolog.DebugLevel, msg) }
func (l *Logger) Info(msg string)  { l.log(zerolog.InfoLevel, msg) }

func (l *Logger) Warn(msg string) {
	l.log(zerolog.WarnLevel, msg)
	l.remember("WARN: " + msg)
}

func (l *Logger) Error(msg string) {
	l.log(zerolog.ErrorLevel, msg)
	l.remember("ERROR: " + msg)
}

func (l *Logger) log(level zerolog.Level, msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl.WithLevel(level).Msg(msg)
}

func (l *Logger) remember(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recent = append(l.recent, entry)
	if len(l.recent) > recentRingSize {
		l.recent = l.recent[len(l.recent)-recentRingSize:]
	}
}

// ExtractRecentErrors returns up to n of the most recent warn/error entries.
func (l *Logger) ExtractRecentErrors(n int) []string {
	if l == nil || n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recent) <= n {
		out := make([]string, len(l.recent))
		copy(out, l.recent)
		return out
	}
	out := make([]string, n)
	copy(out, l.recent[len(l.recent)-n:])
	return out
}

// Path returns the log file location.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Flush forces buffered entries to disk.
func (l *Logger) Flush() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Sync()
	}
}

// Close stops the logger. The file is kept on disk; removal is explicit via
// RemoveLogFile so callers can decide after inspecting the exit path.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	_ = l.file.Sync()
	err := l.file.Close()
	l.file = nil
	return err
}

// RemoveLogFile deletes the log file from disk.
func (l *Logger) RemoveLogFile() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := removeLogFileFn(l.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// SanitizeLogSuffix keeps only filename-safe characters and bounds length.
func SanitizeLogSuffix(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= 32 {
			break
		}
	}
	return b.String()
}
