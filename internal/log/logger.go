// Package log builds slog loggers from application configuration, with
// a human-readable terminal handler for interactive use and JSON for
// everything else.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/finsight-ai/finsight/internal/config"
)

// Logger wraps a configured slog.Logger.
type Logger struct {
	handler slog.Handler
	logger  *slog.Logger
}

// NewLogger creates a Logger writing to stdout per the configured
// level and format.
func NewLogger(cfg config.AppConfig) *Logger {
	return NewLoggerWithWriter(os.Stdout, cfg.LogFormat(), cfg.LogLevel())
}

// NewLoggerWithWriter creates a Logger writing to w.
func NewLoggerWithWriter(w io.Writer, format config.LogFormat, level string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = newTerminalHandler(w, opts)
	}
	return &Logger{handler: handler, logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler returns the underlying slog.Handler.
func (l *Logger) Handler() slog.Handler { return l.handler }

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger { return l.logger }

// With returns a Logger carrying additional attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{handler: l.handler, logger: l.logger.With(args...)}
}

// SetDefault installs this logger as the process-wide slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.logger)
}
