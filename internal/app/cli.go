// Package app wires the forklift CLI: flag handling, config resolution,
// logger lifecycle, and dispatch into single, batch, or worker mode.
package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"forklift/internal/config"
	"forklift/internal/driver"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const version = "0.3.0"

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

type cliOptions struct {
	Driver    string
	Workers   int
	BatchSize int
	Timeout   int
	Retries   int
	LogLevel  string

	Batch      bool
	FullOutput bool

	Cleanup    bool
	Version    bool
	ConfigFile string
}

// Run is the program entrypoint for cmd/forklift/main.go.
func Run() {
	exitFn(run())
}

func run() int {
	cmd := newRootCommand()
	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:           "forklift [flags] <handler> [payload]",
		Short:         "Batch job runner with pluggable execution drivers",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Printf("forklift version %s\n", version)
				return nil
			}
			if opts.Cleanup {
				code := runCleanupMode()
				if code == 0 {
					return nil
				}
				return exitError{code: code}
			}

			registerBuiltinHandlers()

			exitCode := runWithLoggerAndCleanup(func() int {
				v, err := config.NewViper(opts.ConfigFile)
				if err != nil {
					logError(err.Error())
					fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
					return 1
				}

				cfg := buildConfig(cmd, opts, v)
				applyLogLevel(cfg.LogLevel)
				driver.SetLogFuncs(logInfo, logWarn)

				if opts.Batch {
					return runBatchMode(cfg, args)
				}

				logInfo("Run started")
				return runSingleMode(cfg, args)
			})

			if exitCode == 0 {
				return nil
			}
			return exitError{code: exitCode}
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	addRootFlags(cmd.Flags(), opts)
	cmd.AddCommand(newVersionCommand(), newCleanupCommand(), newWorkerCommand())

	return cmd
}

func addRootFlags(fs *pflag.FlagSet, opts *cliOptions) {
	fs.StringVar(&opts.ConfigFile, "config", "", "Config file path (default: $HOME/.forklift/config.*)")
	fs.BoolVarP(&opts.Version, "version", "v", false, "Print version and exit")
	fs.BoolVar(&opts.Cleanup, "cleanup", false, "Clean up old logs and exit")

	fs.BoolVar(&opts.Batch, "batch", false, "Run a batch of jobs (config from stdin)")
	fs.BoolVar(&opts.FullOutput, "full-output", false, "Batch mode: include full job output in the report")

	fs.StringVar(&opts.Driver, "driver", "", fmt.Sprintf("Execution driver (%s)", strings.Join(driver.Names(), ", ")))
	fs.IntVar(&opts.Workers, "workers", 0, "Max concurrent workers")
	fs.IntVar(&opts.BatchSize, "batch-size", 0, "Jobs per worker batch")
	fs.IntVar(&opts.Timeout, "timeout", 0, "Per-job timeout in seconds")
	fs.IntVar(&opts.Retries, "retries", 0, "Per-job retry budget")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// buildConfig resolves settings with flag > env/config file > default
// precedence.
func buildConfig(cmd *cobra.Command, opts *cliOptions, v *viper.Viper) *config.Config {
	cfg := &config.Config{
		Driver:     config.DefaultDriver,
		Workers:    config.DefaultWorkers,
		BatchSize:  config.DefaultBatchSize,
		TimeoutSec: config.ResolveTimeout(),
		Retries:    config.DefaultRetries,
		FullOutput: opts.FullOutput,
	}

	if cmd.Flags().Changed("driver") {
		cfg.Driver = strings.TrimSpace(opts.Driver)
	} else if val := strings.TrimSpace(v.GetString("driver")); val != "" {
		cfg.Driver = val
	}

	if cmd.Flags().Changed("workers") && opts.Workers > 0 {
		cfg.Workers = opts.Workers
	} else if val := v.GetInt("workers"); val > 0 {
		cfg.Workers = val
	}
	if limit := config.ResolveMaxWorkers(); limit > 0 && cfg.Workers > limit {
		logWarn(fmt.Sprintf("workers clamped to FORKLIFT_MAX_WORKERS=%d", limit))
		cfg.Workers = limit
	}

	if cmd.Flags().Changed("batch-size") && opts.BatchSize > 0 {
		cfg.BatchSize = opts.BatchSize
	} else if val := v.GetInt("batch-size"); val > 0 {
		cfg.BatchSize = val
	}

	if cmd.Flags().Changed("timeout") && opts.Timeout > 0 {
		cfg.TimeoutSec = opts.Timeout
	} else if val := v.GetInt("timeout"); val > 0 {
		cfg.TimeoutSec = val
	}

	if cmd.Flags().Changed("retries") && opts.Retries >= 0 {
		cfg.Retries = opts.Retries
	} else if val := v.GetInt("retries"); val > 0 {
		cfg.Retries = val
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = strings.TrimSpace(opts.LogLevel)
	} else {
		cfg.LogLevel = strings.TrimSpace(v.GetString("log-level"))
	}

	if !cmd.Flags().Changed("full-output") && v.IsSet("full-output") {
		cfg.FullOutput = v.GetBool("full-output")
	}

	return cfg
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version and exit",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("forklift version %s\n", version)
			return nil
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "cleanup",
		Short:         "Clean up old logs and exit",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := runCleanupMode()
			if code == 0 {
				return nil
			}
			return exitError{code: code}
		},
	}
}

func runWithLoggerAndCleanup(fn func() int) (exitCode int) {
	logger, err := NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to initialize logger: %v\n", err)
		return 1
	}
	setLogger(logger)

	defer func() {
		logger := activeLogger()
		if logger != nil {
			logger.Flush()
		}
		if err := closeLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: failed to close logger: %v\n", err)
		}
		if logger == nil {
			return
		}

		if exitCode != 0 {
			if entries := logger.ExtractRecentErrors(10); len(entries) > 0 {
				fmt.Fprintln(os.Stderr, "\n=== Recent Errors ===")
				for _, entry := range entries {
					fmt.Fprintln(os.Stderr, entry)
				}
				fmt.Fprintf(os.Stderr, "Log file: %s (deleted)\n", logger.Path())
			}
		}
		_ = logger.RemoveLogFile()
	}()

	// Clean up stale logs from previous runs.
	scheduleStartupCleanup()

	return fn()
}

func applyLogLevel(level string) {
	if level == "" {
		return
	}
	if logger := activeLogger(); logger != nil {
		logger.SetLevel(level)
	}
}

func runCleanupMode() int {
	stats, err := cleanupOldLogs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: cleanup failed: %v\n", err)
		return 1
	}
	fmt.Printf("Scanned %d log file(s): deleted %d, kept %d, errors %d\n",
		stats.Scanned, stats.Deleted, stats.Kept, stats.Errors)
	return 0
}

func scheduleStartupCleanup() {
	go func() {
		if stats, err := cleanupOldLogs(); err == nil && stats.Deleted > 0 {
			logInfo(fmt.Sprintf("startup cleanup removed %d stale log file(s)", stats.Deleted))
		}
	}()
}
