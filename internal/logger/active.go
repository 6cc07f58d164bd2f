package logger

import "sync/atomic"

var loggerPtr atomic.Pointer[Logger]

// SetLogger installs the process-wide logger.
func SetLogger(l *Logger) {
	loggerPtr.Store(l)
}

// CloseLogger detaches and closes the process-wide logger, if any.
func CloseLogger() error {
	logger := loggerPtr.Swap(nil)
	if logger == nil {
		return nil
	}
	return logger.Close()
}

// ActiveLogger returns the installed logger, or nil.
func ActiveLogger() *Logger {
	return loggerPtr.Load()
}

// LogDebug logs through the active logger when present.
func LogDebug(msg string) {
	if logger := ActiveLogger(); logger != nil {
		logger.Debug(msg)
	}
}

func LogInfo(msg string) {
	if logger := ActiveLogger(); logger != nil {
		logger.Info(msg)
	}
}

func LogWarn(msg string) {
	if logger := ActiveLogger(); logger != nil {
		logger.Warn(msg)
	}
}

func LogError(msg string) {
	if logger := ActiveLogger(); logger != nil {
		logger.Error(msg)
	}
}
