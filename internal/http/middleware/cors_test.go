package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(origins...))
	r.GET("/api/plants/current", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/api/surveys", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestCORS(t *testing.T) {
	cases := []struct {
		name       string
		configured []string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"dev default localhost", nil, "http://localhost:5174", http.StatusOK, "http://localhost:5174"},
		{"dev default loopback", nil, "http://127.0.0.1:3000", http.StatusOK, "http://127.0.0.1:3000"},
		{"dev default rejects other", nil, "https://evil.example", http.StatusForbidden, ""},
		{"configured replaces dev", []string{"https://famspace.example/"}, "http://localhost:5173", http.StatusForbidden, ""},
		{"configured origin", []string{" https://famspace.example/ "}, "https://famspace.example", http.StatusOK, "https://famspace.example"},
		{"wildcard", []string{"*"}, "https://anywhere.example", http.StatusOK, "*"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/plants/current", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			corsRouter(tc.configured...).ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d", tc.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantAllow {
				t.Fatalf("allow-origin: want=%q got=%q", tc.wantAllow, got)
			}
		})
	}
}

func TestCORSPreflightAllowsCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/surveys", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Request-Id")
	rec := httptest.NewRecorder()
	corsRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status: want=%d got=%d", http.StatusNoContent, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow-credentials: want=true got=%q", got)
	}
}
