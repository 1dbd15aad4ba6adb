// Package logger wraps zerolog with the console-writer setup used
// throughout the daemon. Every component receives a logger handle at
// construction (spec.md §9: "a logger handle carried on each
// component"); main is the only place the process-global accessor is
// used, to seed cobra's persistent --log-level flag.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New creates a new console logger with pretty output
func New() *Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates a logger with specific level
func NewWithLevel(level string) *Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    false,
	}

	logLevel := parseLevel(level)

	logger := zerolog.New(output).
		Level(logLevel).
		With().
		Timestamp().
		Logger()

	return &Logger{logger}
}

// parseLevel converts string to zerolog level
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	log.Logger = logger.Logger
}

// Global returns the global logger
func Global() *Logger {
	return &Logger{log.Logger}
}

// Toggle flips a logger between info and debug level. Used by the
// daemon's SIGUSR1 handler (spec.md §6) to toggle verbosity without a
// restart.
func Toggle(l *Logger) *Logger {
	if l.GetLevel() == zerolog.DebugLevel {
		return &Logger{l.Logger.Level(zerolog.InfoLevel)}
	}
	return &Logger{l.Logger.Level(zerolog.DebugLevel)}
}
