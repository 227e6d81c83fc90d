package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/http/response"
	"github.com/yungbote/famspace-backend/internal/platform/apierr"
	"github.com/yungbote/famspace-backend/internal/platform/ctxutil"
)

var errUnauthenticated = errors.New("missing or invalid token")

// requireMember returns the authenticated member id or writes a 401.
func requireMember(c *gin.Context) (uuid.UUID, bool) {
	id := ctxutil.MemberID(c.Request.Context())
	if id == uuid.Nil {
		response.RespondAppError(c, apierr.Unauthorized(errUnauthenticated))
		return uuid.Nil, false
	}
	return id, true
}

func uuidParam(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		response.RespondAppError(c, apierr.BadRequest(code, errors.New("invalid "+name)))
		return uuid.Nil, false
	}
	return id, true
}
