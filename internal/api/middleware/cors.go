package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAge           time.Duration
	// AllowLoopback admits any http origin on localhost or 127.0.0.1,
	// whatever the port, in addition to AllowOrigins.
	AllowLoopback bool
}

// DefaultCORSConfig returns CORS settings for a UI served from the local machine.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"tauri://localhost", "http://tauri.localhost"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
			"X-Trace-ID",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowLoopback:    true,
	}
}

// CORS creates a CORS middleware with the provided configuration.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
		CustomSchemas:    []string{"tauri://"},
	}
	if cfg.AllowLoopback {
		c.AllowOrigins = nil
		c.AllowOriginFunc = cfg.AllowsOrigin
	}
	return cors.New(c)
}

// AllowsOrigin reports whether a browser origin may talk to the gateway.
func (cfg CORSConfig) AllowsOrigin(origin string) bool {
	for _, o := range cfg.AllowOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return cfg.AllowLoopback && isLoopbackOrigin(origin)
}

func isLoopbackOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "http://127.0.0.1"} {
		if !strings.HasPrefix(origin, prefix) {
			continue
		}
		rest := origin[len(prefix):]
		if rest == "" || rest[0] == ':' {
			return true
		}
	}
	return false
}
