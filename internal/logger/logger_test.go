package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	t.Setenv("TMPDIR", t.TempDir())
	l, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() {
		_ = l.Close()
		_ = l.RemoveLogFile()
	})
	return l
}

func readLog(t *testing.T, l *Logger) string {
	t.Helper()
	l.Flush()
	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(data)
}

func TestNewLoggerCreatesPidFile(t *testing.T) {
	l := newTestLogger(t)

	want := fmt.Sprintf("%s-%d.log", ToolName, os.Getpid())
	if filepath.Base(l.Path()) != want {
		t.Fatalf("log path = %q, want base %q", l.Path(), want)
	}

	l.Info("hello from test")
	content := readLog(t, l)
	if !strings.Contains(content, "hello from test") {
		t.Fatalf("log missing message: %s", content)
	}
	if !strings.Contains(content, `"pid":`) {
		t.Fatalf("log missing pid field: %s", content)
	}
}

func TestNewLoggerWithSuffix(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	l, err := NewLoggerWithSuffix("batch mode!")
	if err != nil {
		t.Fatalf("NewLoggerWithSuffix() error = %v", err)
	}
	defer func() {
		_ = l.Close()
		_ = l.RemoveLogFile()
	}()

	want := fmt.Sprintf("%s-%d-batchmode.log", ToolName, os.Getpid())
	if filepath.Base(l.Path()) != want {
		t.Fatalf("log path = %q, want base %q", l.Path(), want)
	}
}

func TestSetLevelFiltersBelow(t *testing.T) {
	l := newTestLogger(t)
	l.SetLevel("error")

	l.Info("quiet info")
	l.Error("loud error")

	content := readLog(t, l)
	if strings.Contains(content, "quiet info") {
		t.Fatalf("info leaked through error level: %s", content)
	}
	if !strings.Contains(content, "loud error") {
		t.Fatalf("error not written: %s", content)
	}
}

func TestExtractRecentErrors(t *testing.T) {
	l := newTestLogger(t)

	l.Debug("d")
	l.Info("i")
	l.Warn("w1")
	l.Error("e1")
	l.Warn("w2")

	got := l.ExtractRecentErrors(10)
	want := []string{"WARN: w1", "ERROR: e1", "WARN: w2"}
	if len(got) != len(want) {
		t.Fatalf("recent = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("recent = %v, want %v", got, want)
		}
	}

	// Limited extraction keeps the most recent entries.
	got = l.ExtractRecentErrors(2)
	if len(got) != 2 || got[0] != "ERROR: e1" || got[1] != "WARN: w2" {
		t.Fatalf("recent(2) = %v", got)
	}
}

func TestRecentRingBounded(t *testing.T) {
	l := newTestLogger(t)
	for i := 0; i < recentRingSize+20; i++ {
		l.Warn(fmt.Sprintf("w%d", i))
	}
	got := l.ExtractRecentErrors(recentRingSize + 20)
	if len(got) != recentRingSize {
		t.Fatalf("ring grew to %d, want %d", len(got), recentRingSize)
	}
	if got[len(got)-1] != fmt.Sprintf("WARN: w%d", recentRingSize+19) {
		t.Fatalf("ring lost the newest entry: %q", got[len(got)-1])
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.Flush()
	if got := l.ExtractRecentErrors(5); got != nil {
		t.Fatalf("nil logger recent = %v", got)
	}
	if l.Path() != "" {
		t.Fatalf("nil logger path = %q", l.Path())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("nil logger Close() = %v", err)
	}
	if err := l.RemoveLogFile(); err != nil {
		t.Fatalf("nil logger RemoveLogFile() = %v", err)
	}
}

func TestSanitizeLogSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"batch", "batch"},
		{"  batch  ", "batch"},
		{"has spaces here", "hasspaceshere"},
		{"../../etc/passwd", "etcpasswd"},
		{"mixed-OK_123", "mixed-OK_123"},
		{"", ""},
		{"!!!", ""},
		{strings.Repeat("a", 100), strings.Repeat("a", 32)},
	}
	for _, tt := range tests {
		if got := SanitizeLogSuffix(tt.in); got != tt.want {
			t.Errorf("SanitizeLogSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPidFromLogName(t *testing.T) {
	tests := []struct {
		name    string
		wantPid int
		wantOK  bool
	}{
		{"forklift-123.log", 123, true},
		{"forklift-123-batch.log", 123, true},
		{"forklift-.log", 0, false},
		{"forklift-abc.log", 0, false},
		{"forklift-0.log", 0, false},
		{"other-123.log", 0, false},
		{"forklift-123", 123, true},
	}
	for _, tt := range tests {
		pid, ok := pidFromLogName(tt.name)
		if pid != tt.wantPid || ok != tt.wantOK {
			t.Errorf("pidFromLogName(%q) = (%d, %v), want (%d, %v)", tt.name, pid, ok, tt.wantPid, tt.wantOK)
		}
	}
}

func writeLogFile(t *testing.T, dir, name string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}
	return path
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	now := time.Now()
	ownPid := os.Getpid()

	own := writeLogFile(t, dir, fmt.Sprintf("forklift-%d.log", ownPid), time.Time{})
	dead := writeLogFile(t, dir, "forklift-99991.log", now.Add(-time.Hour))
	alive := writeLogFile(t, dir, "forklift-99992.log", now.Add(-time.Hour))
	recycled := writeLogFile(t, dir, "forklift-99993.log", now.Add(-time.Hour))
	freshJunk := writeLogFile(t, dir, "forklift-junk.log", now.Add(-time.Hour))
	oldJunk := writeLogFile(t, dir, "forklift-junk2.log", now.Add(-48*time.Hour))

	running := map[int]bool{ownPid: true, 99992: true, 99993: true}
	restore := SetProcessRunningCheck(func(pid int) bool { return running[pid] })
	defer restore()

	starts := map[int]time.Time{
		99992: now.Add(-2 * time.Hour), // started before the file was written
		99993: now.Add(-time.Minute),   // recycled pid, started after
	}
	restore = SetProcessStartTimeFn(func(pid int) time.Time { return starts[pid] })
	defer restore()

	stats, err := CleanupOldLogs()
	if err != nil {
		t.Fatalf("CleanupOldLogs() error = %v", err)
	}

	if stats.Scanned != 6 {
		t.Fatalf("scanned = %d, want 6", stats.Scanned)
	}
	if stats.Deleted != 3 {
		t.Fatalf("deleted = %d (%v), want 3", stats.Deleted, stats.DeletedFiles)
	}
	if stats.Kept != 3 {
		t.Fatalf("kept = %d (%v), want 3", stats.Kept, stats.KeptFiles)
	}

	for _, path := range []string{own, alive, freshJunk} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s should have been kept: %v", filepath.Base(path), err)
		}
	}
	for _, path := range []string{dead, recycled, oldJunk} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should have been deleted", filepath.Base(path))
		}
	}
}

func TestCleanupKeepsFileOnStatError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	path := writeLogFile(t, dir, "forklift-99994.log", time.Now().Add(-time.Hour))

	restore := SetFileStatFn(func(string) (os.FileInfo, error) {
		return nil, fmt.Errorf("stat broke")
	})
	defer restore()

	stats, err := CleanupOldLogs()
	if err != nil {
		t.Fatalf("CleanupOldLogs() error = %v", err)
	}
	if stats.Errors != 1 || stats.Deleted != 0 {
		t.Fatalf("stats = %+v, want 1 error and no deletions", stats)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should survive a stat failure: %v", err)
	}
}
