package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/famspace-backend/internal/platform/ctxutil"
)

func traceRouter(seen *ctxutil.Trace) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/api/plants/current", func(c *gin.Context) {
		*seen, _ = ctxutil.TraceFrom(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestAttachTraceContextMintsIDs(t *testing.T) {
	var seen ctxutil.Trace
	rec := httptest.NewRecorder()
	traceRouter(&seen).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plants/current", nil))

	if len(seen.RequestID) != 26 || len(seen.TraceID) != 26 {
		t.Fatalf("minted ids should be ULIDs: %+v", seen)
	}
	if got := rec.Header().Get(headerRequestID); got != seen.RequestID {
		t.Fatalf("request id header: want=%s got=%s", seen.RequestID, got)
	}
	if got := rec.Header().Get(headerTraceID); got != seen.TraceID {
		t.Fatalf("trace id header: want=%s got=%s", seen.TraceID, got)
	}
}

func TestAttachTraceContextKeepsClientIDs(t *testing.T) {
	var seen ctxutil.Trace
	req := httptest.NewRequest(http.MethodGet, "/api/plants/current", nil)
	req.Header.Set(headerRequestID, "req-42")
	req.Header.Set(headerTraceID, "trace-7")
	traceRouter(&seen).ServeHTTP(httptest.NewRecorder(), req)

	if seen.RequestID != "req-42" || seen.TraceID != "trace-7" {
		t.Fatalf("client ids: want=req-42/trace-7 got=%s/%s", seen.RequestID, seen.TraceID)
	}
}

func TestAttachTraceContextRejectsOddClientIDs(t *testing.T) {
	var seen ctxutil.Trace
	req := httptest.NewRequest(http.MethodGet, "/api/plants/current", nil)
	req.Header.Set(headerRequestID, strings.Repeat("x", maxClientIDLen+1))
	req.Header.Set(headerTraceID, "has space")
	traceRouter(&seen).ServeHTTP(httptest.NewRecorder(), req)

	if len(seen.RequestID) != 26 || len(seen.TraceID) != 26 {
		t.Fatalf("odd client ids should be replaced: %+v", seen)
	}
	if fields := seen.LogFields(); len(fields) != 4 || fields[0] != "trace_id" {
		t.Fatalf("log fields: %v", fields)
	}
}
