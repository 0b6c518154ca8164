package utils

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging throughout the application.
// Messages keep the printf style used by every component; the output is
// rendered by zerolog (console in development, JSON otherwise).
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a console Logger writing to stdout.
func NewLogger() *Logger {
	return NewLoggerTo(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}, zerolog.DebugLevel)
}

// NewJSONLogger creates a Logger emitting one JSON object per line to w.
func NewJSONLogger(w io.Writer, level zerolog.Level) *Logger {
	return NewLoggerTo(w, level)
}

// NewLoggerTo creates a Logger on top of an arbitrary writer.
func NewLoggerTo(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

// NopLogger discards everything. Used by tests that don't care about output.
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child Logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Zerolog exposes the underlying logger for middleware that logs structured fields.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}
