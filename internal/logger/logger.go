// Package logger configures the process-wide slog logger and provides the
// Fiber and GORM adapters that feed into it.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level  string
	Format string
	Output string
}

var levelVar slog.LevelVar

// InitFromEnv builds the default logger from LOG_LEVEL, LOG_FORMAT and
// LOG_OUTPUT. JSON to stdout unless told otherwise.
func InitFromEnv() *slog.Logger {
	return Init(Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		Output: os.Getenv("LOG_OUTPUT"),
	})
}

func Init(cfg Config) *slog.Logger {
	levelVar.Set(parseLevel(cfg.Level))

	w := resolveWriter(cfg.Output)
	opts := &slog.HandlerOptions{Level: &levelVar}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

// SetLevel adjusts the level of the running logger.
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func resolveWriter(output string) io.Writer {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	}
}
