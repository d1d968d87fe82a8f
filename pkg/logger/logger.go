package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Logger is a thin wrapper over slog so callers can pass it around by value.
type Logger struct {
	sl *slog.Logger
}

type Config struct {
	Development bool
	Level       string
}

func New(cfg Config) Logger {
	level := parseLevel(cfg.Level)

	var h slog.Handler
	if cfg.Development {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return Logger{sl: slog.New(h)}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l Logger) Debug(msg string, args ...any) { l.sl.Debug(msg, args...) }
func (l Logger) Info(msg string, args ...any)  { l.sl.Info(msg, args...) }
func (l Logger) Warn(msg string, args ...any)  { l.sl.Warn(msg, args...) }
func (l Logger) Error(msg string, args ...any) { l.sl.Error(msg, args...) }

func (l Logger) Errorf(format string, args ...any) {
	l.sl.Error(fmt.Sprintf(format, args...))
}

func (l Logger) With(args ...any) Logger {
	return Logger{sl: l.sl.With(args...)}
}
