package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/tracing"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	// AllowOrigins lists the front end origins. Empty or "*" allows any
	// origin without credentials.
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        time.Duration
}

// DefaultCORSConfig allows any origin, so a studio front end can be served
// from a dev server on another port.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			"Cache-Control",
			RequestIDHeader,
			tracing.TraceHeader,
			tracing.SpanHeader,
		},
		ExposeHeaders: []string{RequestIDHeader, tracing.TraceHeader},
		MaxAge:        12 * time.Hour,
	}
}

// WithOrigins returns a copy of c restricted to origins.
func (c CORSConfig) WithOrigins(origins ...string) CORSConfig {
	c.AllowOrigins = slices.Clone(origins)
	return c
}

// AllowsAny reports whether every origin is accepted.
func (c CORSConfig) AllowsAny() bool {
	return len(c.AllowOrigins) == 0 || slices.Contains(c.AllowOrigins, "*")
}

// CORS creates a CORS middleware. Credentials are only allowed for an
// explicit origin list.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:    cfg.AllowMethods,
		AllowHeaders:    cfg.AllowHeaders,
		ExposeHeaders:   cfg.ExposeHeaders,
		MaxAge:          cfg.MaxAge,
		AllowWebSockets: true,
	}
	if cfg.AllowsAny() {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowOrigins
		cc.AllowCredentials = true
	}
	return cors.New(cc)
}
