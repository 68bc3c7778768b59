package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"

	"github.com/nerrad567/rfsocket-core/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "rfsocket"

// Logger is an slog.Logger carrying the service and version attributes.
// Safe for concurrent use.
type Logger struct {
	*slog.Logger

	// closer is the rotating log file, when output is "file".
	closer io.Closer
}

// New builds the logger described by cfg. Output "file" rotates through
// lumberjack; anything other than "stderr" falls back to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	if strings.EqualFold(cfg.Output, "file") {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		l := newWithWriter(rotator, cfg, version)
		l.closer = rotator
		return l
	}

	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return newWithWriter(out, cfg, version)
}

func newWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With("service", ServiceName, "version", version)}
}

// parseLevel maps debug, warn/warning and error; anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// With returns a child logger with extra attributes. It shares the
// parent's output, so only the parent should be closed.
//
//	dispatchLog := logger.With("component", "dispatch")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Close releases the log file. It is a no-op for stdout and stderr.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Default is the JSON stdout logger used until configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
