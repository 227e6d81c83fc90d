package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/platform/apierr"
)

func TestRespondAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody APIError
	}{
		{"bad request", apierr.InvalidRequest(errors.New("unexpected EOF")), http.StatusBadRequest, APIError{Message: "unexpected EOF", Code: "invalid_request"}},
		{"api internal", apierr.Internal(errors.New("dial tcp: refused")), http.StatusInternalServerError, APIError{Message: "internal error", Code: "internal"}},
		{"conflict", domainagg.NewError(domainagg.CodeConflict, "Growth.Plant.Create", "family already has a plant", nil), http.StatusConflict, APIError{Message: "family already has a plant", Code: "conflict"}},
		{"retryable", domainagg.NewError(domainagg.CodeRetryable, "Growth.Plant.SubmitActivity", "database is locked", nil), http.StatusServiceUnavailable, APIError{Message: "temporarily unavailable, retry later", Code: "retryable"}},
		{"plain", errors.New("boom"), http.StatusInternalServerError, APIError{Message: "internal error", Code: "internal"}},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondAppError(c, tc.err)
		if rec.Code != tc.wantCode {
			t.Fatalf("%s: status want=%d got=%d", tc.name, tc.wantCode, rec.Code)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if env.Error != tc.wantBody {
			t.Fatalf("%s: body want=%+v got=%+v", tc.name, tc.wantBody, env.Error)
		}
	}
}
