package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/crudbase/internal/pkg"
)

// Recovery returns a gin middleware that recovers from panics, logs the error
// with stack trace using slog, and returns a JSON error response:
//
//	{"success": false, "message": "internal server error"}
//
// This middleware is intended to replace gin.Recovery() for applications that
// need structured logging.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()

				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", err),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(stack)),
				)

				c.Abort()
				c.JSON(http.StatusInternalServerError, pkg.Envelope{
					Success: false,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}
