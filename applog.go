package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// logger is the process-wide diagnostic logger. It discards everything until
// initLogging is called, so the TUI never writes over its own screen.
var logger = zerolog.New(io.Discard)

// logConfig holds diagnostic logging settings.
type logConfig struct {
	// Level is the minimum level (trace, debug, info, warn, error).
	Level string

	// Format is "console" or "json".
	Format string

	// Output is where log lines go. Nil discards.
	Output io.Writer
}

// initLogging configures the global logger.
func initLogging(cfg logConfig) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		logger = zerolog.New(io.Discard)
		return
	}
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    true,
		}
	}
	logger = zerolog.New(out).With().Timestamp().Logger()
}

// openDebugLog opens (appending) the file that -debug writes to.
func openDebugLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// componentLogger returns a child logger tagged with a component field.
func componentLogger(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
