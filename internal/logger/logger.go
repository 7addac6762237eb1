// Package logger configures the process-wide structured logger used by every
// core subsystem. It wraps zerolog rather than the standard library's log
// package so that module, hook, timer and xcall activity can be filtered and
// queried as structured fields instead of parsed out of free text.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the global logger instance. Subsystems derive scoped loggers from it
// via the helpers below rather than writing to it directly.
var Log zerolog.Logger

// Initialize sets up the global logger. level is any zerolog level name
// ("debug", "info", "warn", "error"); pretty selects human-readable console
// output over newline-delimited JSON.
func Initialize(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Log = log.With().
		Str("service", "modcore").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("logger initialized")
}

// GetLogger returns the global logger instance.
func GetLogger() *zerolog.Logger {
	return &Log
}

// Module returns a logger scoped to a single module's activity (resolution,
// binding, initializer/finalizer invocation).
func Module(name string) *zerolog.Logger {
	l := Log.With().Str("component", "module").Str("module", name).Logger()
	return &l
}

// Hooks returns a logger scoped to hook registration and dispatch.
func Hooks() *zerolog.Logger {
	l := Log.With().Str("component", "hook").Logger()
	return &l
}

// Timers returns a logger scoped to the timer scheduler.
func Timers() *zerolog.Logger {
	l := Log.With().Str("component", "timer").Logger()
	return &l
}

// XCalls returns a logger scoped to the xcall registry.
func XCalls() *zerolog.Logger {
	l := Log.With().Str("component", "xcall").Logger()
	return &l
}

// Runtime returns a logger scoped to the runtime entry's own lifecycle
// (startup, main loop, shutdown).
func Runtime() *zerolog.Logger {
	l := Log.With().Str("component", "runtime").Logger()
	return &l
}
