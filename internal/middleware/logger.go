package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerConfig controls request logging.
type LoggerConfig struct {
	// SkipPaths lists exact request paths that are never logged, such as
	// health probes that would otherwise flood the log.
	SkipPaths []string
}

// Logger returns a gin middleware that logs every request at a level derived
// from the response status: 2xx/3xx info, 4xx warn, 5xx error.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return LoggerWithConfig(logger, LoggerConfig{})
}

// LoggerWithConfig is Logger with skip paths. Each log record carries the
// method, path, status, latency, client IP, and response size, and is emitted
// through the request context so the context handler attaches the request_id.
func LoggerWithConfig(logger *slog.Logger, cfg LoggerConfig) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if _, ok := skip[path]; ok {
			return
		}

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("bytes", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		logger.LogAttrs(c.Request.Context(), requestLogLevel(status), "request", attrs...)
	}
}

func requestLogLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
