package logger

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// FiberMiddleware logs one line per request through slog.
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		attrs := []any{
			"status", c.Response().StatusCode(),
			"method", c.Method(),
			"path", c.OriginalURL(),
			"ip", c.IP(),
			"latency_ms", float64(latency.Microseconds()) / 1000.0,
		}

		if err != nil {
			slog.Error("http request", append(attrs, "err", err.Error())...)
			return err
		}
		slog.Info("http request", attrs...)
		return nil
	}
}
