package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/jwt"

	"github.com/simp-lee/crudbase/internal/domain"
	"github.com/simp-lee/crudbase/internal/pkg"
)

const (
	// tokenContextKey is the gin context key under which the validated
	// token is stored.
	tokenContextKey = "auth_token"

	bearerPrefix = "Bearer "
)

// AuthConfig holds the configuration for the Auth middleware.
type AuthConfig struct {
	// JWT validates bearer tokens. Required.
	JWT jwt.Service

	// PublicPaths lists exact request paths that bypass authentication,
	// e.g. "/health".
	PublicPaths []string
}

// Auth returns a gin middleware that requires a valid bearer token on every
// request whose path is not listed in cfg.PublicPaths. On success the parsed
// token is stored in the gin context and can be read with GetToken.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	if cfg.JWT == nil {
		panic("middleware: Auth requires a jwt.Service")
	}

	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := public[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		token, err := cfg.JWT.ValidateAndParse(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(tokenContextKey, token)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Abort()
	pkg.Error(c, domain.NewAppError(domain.CodeUnauthorized, msg, nil))
}

// GetToken extracts the validated token from the gin.Context.
// Returns nil if the request was not authenticated.
func GetToken(c *gin.Context) *jwt.Token {
	if v, exists := c.Get(tokenContextKey); exists {
		if t, ok := v.(*jwt.Token); ok {
			return t
		}
	}
	return nil
}
