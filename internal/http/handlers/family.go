package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/domain/family"
	"github.com/yungbote/famspace-backend/internal/domain/plans"
	"github.com/yungbote/famspace-backend/internal/http/response"
	famsvc "github.com/yungbote/famspace-backend/internal/modules/family"
	"github.com/yungbote/famspace-backend/internal/platform/apierr"
)

type FamilyService interface {
	CreateFamily(ctx context.Context, callerID uuid.UUID, name string) (*family.Space, error)
	Join(ctx context.Context, callerID, familyID uuid.UUID) error
	Membership(ctx context.Context, callerID uuid.UUID) (*famsvc.Membership, error)
	SubmitSurvey(ctx context.Context, callerID uuid.UUID, in famsvc.SurveyInput) (*plans.SurveyProfile, error)
}

type FamilyHandler struct {
	families FamilyService
}

func NewFamilyHandler(families FamilyService) *FamilyHandler {
	return &FamilyHandler{families: families}
}

// POST /api/families
func (h *FamilyHandler) CreateFamily(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAppError(c, apierr.InvalidRequest(err))
		return
	}
	space, err := h.families.CreateFamily(c.Request.Context(), memberID, strings.TrimSpace(req.Name))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"family": space})
}

// POST /api/families/:id/join
func (h *FamilyHandler) JoinFamily(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	familyID, ok := uuidParam(c, "id", "invalid_family_id")
	if !ok {
		return
	}
	if err := h.families.Join(c.Request.Context(), memberID, familyID); err != nil {
		response.RespondAppError(c, err)
		return
	}
	membership, err := h.families.Membership(c.Request.Context(), memberID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"membership": membership})
}

// GET /api/me/family
func (h *FamilyHandler) GetMembership(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	membership, err := h.families.Membership(c.Request.Context(), memberID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"membership": membership})
}

// POST /api/surveys
func (h *FamilyHandler) SubmitSurvey(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	var req famsvc.SurveyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAppError(c, apierr.InvalidRequest(err))
		return
	}
	profile, err := h.families.SubmitSurvey(c.Request.Context(), memberID, req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"survey": profile})
}
