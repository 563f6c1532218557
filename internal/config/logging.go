package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger creates a logger writing JSON to logFile and, when stderr is
// true, human-readable text to stderr. The interactive TUI passes
// stderr=false so log lines do not corrupt the screen.
// Returns the logger and a cleanup function to close the file.
func SetupLogger(logFile string, level slog.Level, stderr bool) (*slog.Logger, func() error) {
	var console io.Writer
	if stderr {
		console = os.Stderr
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := NewLogger(console, nil, level)
		logger.Warn("failed to open log file, file logging disabled", "error", err, "file", logFile)
		return logger, func() error { return nil }
	}

	return NewLogger(console, file, level), file.Close
}

// NewLogger fans out to a text handler on console and a JSON handler on file.
// Either writer may be nil; with both nil the logger discards everything.
func NewLogger(console, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, opts))
	}
	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, opts))
	case 1:
		return slog.New(handlers[0])
	default:
		return slog.New(slogmulti.Fanout(handlers...))
	}
}
