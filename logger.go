package viscor

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with viscor-specific field helpers so that
// loaders and the inspector report with consistent attribute names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at Info.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes human-readable text to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithPath tags the logger with a source path.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// WithCell tags the logger with a query cell.
func (l *Logger) WithCell(i, j int) *Logger {
	return &Logger{Logger: l.Logger.With("i", i, "j", j)}
}

// LogRecompute logs a cache miss that produced a new similarity map.
func (l *Logger) LogRecompute(key CacheKey, lo, hi float64, elapsed time.Duration) {
	l.Debug("similarity map recomputed",
		"volume", key.Volume,
		"i", key.I,
		"j", key.J,
		"exp", key.Exp,
		"min", lo,
		"max", hi,
		"elapsed", elapsed,
	)
}

// LogChannelMismatch warns about a descriptor channel count that differs
// from the nominal one. The field still loads.
func (l *Logger) LogChannelMismatch(expected, got, h, w int) {
	l.Warn("unexpected descriptor channel count",
		"expected", expected,
		"got", got,
		"h", h,
		"w", w,
	)
}
