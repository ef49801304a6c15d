package middleware

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
	requestIDLength     = 16 // random bytes, hex-encoded in the header
)

// Upstream IDs must be short and alphanumeric-with-dashes; anything else is
// replaced so a client cannot inject log content through the header.
var validIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

var idFallbackCounter atomic.Uint64

// RequestIDConfig controls whether an incoming X-Request-ID is reused.
type RequestIDConfig struct {
	TrustUpstream bool
}

// RequestID returns a middleware that assigns a fresh ID to every request,
// ignoring any upstream X-Request-ID header.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig assigns a request ID, reusing a valid upstream header
// when TrustUpstream is set. The ID is stored in the gin context, echoed in
// the X-Request-ID response header, and attached to the request's Go context
// so structured log records carry it automatically.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		if cfg.TrustUpstream {
			if upstream := c.GetHeader(requestIDHeader); validIDPattern.MatchString(upstream) {
				id = upstream
			}
		}
		if id == "" {
			id = newRequestID()
		}

		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)

		ctx := logger.WithContextAttrs(c.Request.Context(), slog.String(requestIDContextKey, id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID returns the request ID assigned by the middleware, or an
// empty string when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func newRequestID() string {
	b := make([]byte, requestIDLength)
	if _, err := rand.Read(b); err != nil {
		// Entropy exhaustion is effectively theoretical; a timestamp plus a
		// process-local counter still yields a unique, well-formed ID.
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint64(b[8:], idFallbackCounter.Add(1))
	}
	return hex.EncodeToString(b)
}
