package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseBoolFlag(t *testing.T) {
	tests := []struct {
		val        string
		defaultVal bool
		want       bool
	}{
		{"1", false, true},
		{"true", false, true},
		{"TRUE", false, true},
		{"yes", false, true},
		{"on", false, true},
		{" on ", false, true},
		{"0", true, false},
		{"false", true, false},
		{"no", true, false},
		{"off", true, false},
		{"", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		if got := ParseBoolFlag(tt.val, tt.defaultVal); got != tt.want {
			t.Errorf("ParseBoolFlag(%q, %v) = %v, want %v", tt.val, tt.defaultVal, got, tt.want)
		}
	}
}

func TestEnvFlagEnabled(t *testing.T) {
	key := "FORKLIFT_TEST_FLAG"

	os.Unsetenv(key)
	if EnvFlagEnabled(key) {
		t.Fatalf("unset env var should be disabled")
	}

	t.Setenv(key, "1")
	if !EnvFlagEnabled(key) {
		t.Fatalf("FORKLIFT_TEST_FLAG=1 should be enabled")
	}

	t.Setenv(key, "0")
	if EnvFlagEnabled(key) {
		t.Fatalf("FORKLIFT_TEST_FLAG=0 should be disabled")
	}

	t.Setenv(key, "banana")
	if !EnvFlagEnabled(key) {
		t.Fatalf("unrecognized value should default to enabled when set")
	}
}

func TestEnvFlagDefaultTrue(t *testing.T) {
	key := "FORKLIFT_TEST_DEFAULT"

	os.Unsetenv(key)
	if !EnvFlagDefaultTrue(key) {
		t.Fatalf("unset env var should default to true")
	}

	t.Setenv(key, "off")
	if EnvFlagDefaultTrue(key) {
		t.Fatalf("explicit off should disable")
	}
}

func TestResolveMaxWorkers(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"unset", "", 0},
		{"valid", "8", 8},
		{"zero", "0", 0},
		{"negative", "-3", 0},
		{"garbage", "lots", 0},
		{"clamped", "5000", 100},
		{"whitespace", "  12  ", 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env == "" {
				os.Unsetenv("FORKLIFT_MAX_WORKERS")
			} else {
				t.Setenv("FORKLIFT_MAX_WORKERS", tt.env)
			}
			if got := ResolveMaxWorkers(); got != tt.want {
				t.Errorf("ResolveMaxWorkers() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveTimeout(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want int
	}{
		{"unset", "", DefaultTimeout},
		{"valid", "60", 60},
		{"zero", "0", DefaultTimeout},
		{"negative", "-1", DefaultTimeout},
		{"garbage", "soon", DefaultTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env == "" {
				os.Unsetenv("FORKLIFT_TIMEOUT")
			} else {
				t.Setenv("FORKLIFT_TIMEOUT", tt.env)
			}
			if got := ResolveTimeout(); got != tt.want {
				t.Errorf("ResolveTimeout() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewViperReadsEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FORKLIFT_DRIVER", "serial")

	v, err := NewViper("")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	if got := v.GetString("driver"); got != "serial" {
		t.Fatalf("driver = %q, want serial", got)
	}
}

func TestNewViperExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "driver: goroutine\nworkers: 7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v, err := NewViper(path)
	if err != nil {
		t.Fatalf("NewViper(%q) error = %v", path, err)
	}
	if got := v.GetString("driver"); got != "goroutine" {
		t.Fatalf("driver = %q, want goroutine", got)
	}
	if got := v.GetInt("workers"); got != 7 {
		t.Fatalf("workers = %d, want 7", got)
	}
}

func TestNewViperMissingExplicitFile(t *testing.T) {
	if _, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestNewViperHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".forklift")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "batch-size: 9\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	v, err := NewViper("")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	if got := v.GetInt("batch-size"); got != 9 {
		t.Fatalf("batch-size = %d, want 9", got)
	}
}
