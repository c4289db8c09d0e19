package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmylchreest/slog-logfilter"
	"github.com/mattn/go-isatty"
)

// Setup configures the default logger with the given level and format.
// Formats: "json", "text" (logfmt style) and "auto", which picks text on a
// terminal and json otherwise. LOG_LEVEL and LOG_FORMAT override both values.
func Setup(logLevel string, format string) *slog.Logger {
	logLevel, format = EnvOverrides(logLevel, format)
	return SetupWithOutput(os.Stdout, logLevel, format)
}

// EnvOverrides applies LOG_LEVEL and LOG_FORMAT to configured values
func EnvOverrides(logLevel string, format string) (string, string) {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		logLevel = env
	}
	if env := os.Getenv("LOG_FORMAT"); env != "" {
		format = env
	}
	return logLevel, format
}

// SetupWithOutput configures the default logger writing to w. No
// environment overrides are applied.
func SetupWithOutput(w io.Writer, logLevel string, format string) *slog.Logger {
	opts := []logfilter.Option{
		logfilter.WithLevel(ParseLevel(logLevel)),
		logfilter.WithOutput(w),
		logfilter.WithFormat(ResolveFormat(format, w)),
	}

	logger := logfilter.New(opts...)
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the level of loggers built by SetupWithOutput, without
// restarting the process. The daemon's HTTP API exposes it.
func SetLevel(level slog.Level) {
	logfilter.SetLevel(level)
}

// AddJobFilter raises a single maintenance job to debug logging
func AddJobFilter(jobName string) {
	logfilter.AddFilter(logfilter.LogFilter{
		Type:    "job",
		Pattern: jobName,
		Level:   "debug",
		Enabled: true,
	})
}

// ResolveFormat maps a configured format to "json" or "text"
func ResolveFormat(format string, w io.Writer) string {
	switch strings.ToLower(format) {
	case "text":
		return "text"
	case "auto":
		if isTerminal(w) {
			return "text"
		}
		return "json"
	default:
		return "json"
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
