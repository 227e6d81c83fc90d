package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var devPorts = []string{"80", "3000", "5173", "5174"}

func devOrigins() []string {
	out := make([]string, 0, 2*len(devPorts))
	for _, host := range []string{"localhost", "127.0.0.1"} {
		for _, port := range devPorts {
			out = append(out, "http://"+host+":"+port)
		}
	}
	return out
}

// CORS allows the given origins, or the local dev origins when none are configured.
// A lone "*" allows any origin without credentials. Same-host requests always pass.
func CORS(origins ...string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", headerRequestID, headerTraceID},
		ExposeHeaders:    []string{headerTraceID, headerRequestID},
		AllowCredentials: true,
		AllowWebSockets:  true,
		MaxAge:           10 * time.Minute,
	}
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	switch {
	case len(cleaned) == 1 && cleaned[0] == "*":
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	case len(cleaned) == 0:
		cfg.AllowOrigins = devOrigins()
	default:
		cfg.AllowOrigins = cleaned
	}
	return cors.New(cfg)
}
