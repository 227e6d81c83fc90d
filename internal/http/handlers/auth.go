package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/http/response"
	"github.com/yungbote/famspace-backend/internal/platform/apierr"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"github.com/yungbote/famspace-backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{log: log.With("handler", "AuthHandler"), authService: authService}
}

// POST /api/auth/token
func (ah *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		MemberID string `json:"member_id"`
		Pin      string `json:"pin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAppError(c, apierr.InvalidRequest(err))
		return
	}
	memberID, err := uuid.Parse(req.MemberID)
	if err != nil {
		response.RespondAppError(c, apierr.BadRequest("invalid_member_id", err))
		return
	}
	accessToken, err := ah.authService.Login(c.Request.Context(), memberID, req.Pin)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.RespondAppError(c, apierr.New(http.StatusUnauthorized, "invalid_credentials", err))
			return
		}
		ah.log.Error("token issue failed", "member_id", memberID, "error", err)
		response.RespondAppError(c, apierr.Internal(err))
		return
	}
	response.RespondOK(c, gin.H{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(ah.authService.GetAccessTTL().Seconds()),
	})
}
