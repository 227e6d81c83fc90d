package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/platform/ctxutil"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

// quietPaths are polled constantly and only logged when they fail.
var quietPaths = map[string]bool{"/healthcheck": true}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if quietPaths[route] && status < 500 {
			return
		}

		ctx := c.Request.Context()
		kv := make([]any, 0, 16)
		kv = append(kv,
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if t, ok := ctxutil.TraceFrom(ctx); ok {
			kv = append(kv, t.LogFields()...)
		}
		if id := ctxutil.MemberID(ctx); id != uuid.Nil {
			kv = append(kv, "caller_id", id.String())
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "errors", errs.Errors())
		}

		if status >= 500 {
			log.Error("request failed", kv...)
		} else if status >= 400 {
			log.Warn("request rejected", kv...)
		} else {
			log.Info("request served", kv...)
		}
	}
}
