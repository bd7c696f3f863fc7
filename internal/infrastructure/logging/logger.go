package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/obs-scene-scheduler/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "scenesched"

// levels maps configured names to slog levels. Anything else is info.
var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Logger is the process-wide structured logger.
//
// Safe for concurrent use. Loggers derived with With share the parent's
// output, including a rotating file.
type Logger struct {
	*slog.Logger

	// file is set only when output is "file".
	file io.Closer
}

// New builds a Logger for the destination named in cfg.Output.
//
// Logs default to stderr because stdout carries the "Switched to scene"
// lines. A "file" output rotates through lumberjack and must be released
// with Close.
//
// Parameters:
//   - cfg: Logging section of the configuration
//   - version: Build version stamped on every entry
//
// Returns:
//   - *Logger: Ready-to-use logger
func New(cfg config.LoggingConfig, version string) *Logger {
	var (
		w    io.Writer = os.Stderr
		file io.Closer
	)
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		w = os.Stdout
	case "file":
		rotating := rotatingFile(cfg.File)
		w, file = rotating, rotating
	}

	l := NewWithWriter(cfg, version, w)
	l.file = file
	return l
}

// NewWithWriter builds a Logger on w and ignores cfg.Output. Tests use it
// to capture entries.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	handler := newHandler(cfg.Format, w, &slog.HandlerOptions{Level: parseLevel(cfg.Level)}).
		WithAttrs([]slog.Attr{
			slog.String("service", serviceName),
			slog.String("version", version),
		})
	return &Logger{Logger: slog.New(handler)}
}

// newHandler picks text for "text" and JSON for everything else.
func newHandler(format string, w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func rotatingFile(f config.LogFileConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		Compress:   f.Compress,
	}
}

func parseLevel(name string) slog.Level {
	if lvl, ok := levels[strings.ToLower(name)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// With returns a child logger carrying args on every entry.
//
//	loop := logger.With("component", "switcher")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), file: l.file}
}

// Close flushes and releases the rotating file. It is a no-op for the
// standard streams and for a nil Logger.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Default is the bootstrap logger used before configuration is loaded:
// JSON on stderr at info.
func Default() *Logger {
	return NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "dev", os.Stderr)
}
