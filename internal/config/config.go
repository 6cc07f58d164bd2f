package config

import (
	"os"
	"strconv"
	"strings"
)

// Defaults applied when neither flags, env, nor config file say otherwise.
const (
	DefaultDriver    = "procpool"
	DefaultWorkers   = 4
	DefaultBatchSize = 4
	DefaultTimeout   = 300 // seconds, per job
	DefaultRetries   = 0
)

// Config holds the resolved runtime configuration.
type Config struct {
	Driver     string
	Workers    int
	BatchSize  int
	TimeoutSec int
	Retries    int
	LogLevel   string
	FullOutput bool
}

// EnvFlagEnabled returns true when the environment variable exists and is not
// explicitly set to a falsey value ("0/false/no/off").
func EnvFlagEnabled(key string) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	return ParseBoolFlag(val, true)
}

// ParseBoolFlag parses common truthy/falsey spellings, falling back to
// defaultValue on anything else.
func ParseBoolFlag(val string, defaultValue bool) bool {
	val = strings.TrimSpace(strings.ToLower(val))
	switch val {
	case "1", "true", "yes", "on":
		return true
	case "", "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// EnvFlagDefaultTrue returns true unless the env var is explicitly set to
// false/0/no/off.
func EnvFlagDefaultTrue(key string) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return true
	}
	return ParseBoolFlag(val, true)
}

const maxWorkersLimit = 100

// ResolveMaxWorkers reads FORKLIFT_MAX_WORKERS, clamped to a sane upper
// bound. It returns 0 when unset or invalid, meaning "use the default".
func ResolveMaxWorkers() int {
	raw := strings.TrimSpace(os.Getenv("FORKLIFT_MAX_WORKERS"))
	if raw == "" {
		return 0
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	if value > maxWorkersLimit {
		return maxWorkersLimit
	}
	return value
}

// ResolveTimeout reads FORKLIFT_TIMEOUT (seconds). Invalid or missing values
// fall back to the default per-job timeout.
func ResolveTimeout() int {
	raw := strings.TrimSpace(os.Getenv("FORKLIFT_TIMEOUT"))
	if raw == "" {
		return DefaultTimeout
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return DefaultTimeout
	}
	return value
}
