package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm/logger"
)

// GormLogger adapts gorm.io/gorm/logger.Interface onto slog. Queries slower
// than slowThreshold are logged at warn.
type GormLogger struct {
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(level string) *GormLogger {
	var lvl logger.LogLevel
	switch level {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "warn", "warning":
		lvl = logger.Warn
	default:
		lvl = logger.Info
	}
	return &GormLogger{logLevel: lvl, slowThreshold: 200 * time.Millisecond}
}

func (g *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &GormLogger{logLevel: level, slowThreshold: g.slowThreshold}
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= logger.Info {
		slog.Info("gorm info", "msg_detail", msg, "data", data)
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= logger.Warn {
		slog.Warn("gorm warn", "msg_detail", msg, "data", data)
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.logLevel >= logger.Error {
		slog.Error("gorm error", "msg_detail", msg, "data", data)
	}
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.logLevel == logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	attrs := []any{
		"sql", sql,
		"rows", rows,
		"elapsed_ms", float64(elapsed.Microseconds()) / 1000.0,
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		if g.logLevel >= logger.Error {
			slog.Error("gorm trace", append(attrs, "err", err)...)
		}
		return
	}

	if g.slowThreshold > 0 && elapsed > g.slowThreshold {
		if g.logLevel >= logger.Warn {
			slog.Warn("gorm trace slow", append(attrs, "slow", true)...)
		}
		return
	}

	if g.logLevel >= logger.Info {
		slog.Info("gorm trace", attrs...)
	}
}
