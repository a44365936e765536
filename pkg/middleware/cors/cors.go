package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowedHeaders = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	preflightTTL   = "600"
)

type policy struct {
	origins map[string]struct{}
}

// New returns a CORS middleware restricted to the given origins. An empty
// list allows every origin, which is only meant for local development.
func New(allowedOrigins []string) gin.HandlerFunc {
	p := policy{origins: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		p.origins[normalizeOrigin(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowed := p.resolve(c.GetHeader("Origin")); allowed != "" {
			header.Set("Access-Control-Allow-Origin", allowed)
		}
		header.Set("Vary", "Origin")
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Set("Access-Control-Allow-Headers", allowedHeaders)
		header.Set("Access-Control-Allow-Methods", allowedMethods)
		header.Set("Access-Control-Max-Age", preflightTTL)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// resolve returns the Access-Control-Allow-Origin value for a request
// origin, or "" when the origin is not allowed.
func (p policy) resolve(origin string) string {
	if len(p.origins) == 0 {
		if origin == "" {
			return "*"
		}
		return origin
	}
	if origin == "" {
		return ""
	}
	if _, ok := p.origins[normalizeOrigin(origin)]; ok {
		return origin
	}
	return ""
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(origin, "/")
}
