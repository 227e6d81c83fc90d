package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/domain/growth"
	"github.com/yungbote/famspace-backend/internal/http/response"
	growthsvc "github.com/yungbote/famspace-backend/internal/modules/growth"
	"github.com/yungbote/famspace-backend/internal/platform/apierr"
)

type PlantService interface {
	CreatePlant(ctx context.Context, callerID uuid.UUID, kind string) (growth.Plant, error)
	SubmitActivity(ctx context.Context, callerID uuid.UUID, activityType string) (domainagg.SubmitActivityResult, error)
	ClaimReward(ctx context.Context, callerID uuid.UUID) (domainagg.ClaimRewardResult, error)
	CurrentPlant(ctx context.Context, callerID uuid.UUID) (*growthsvc.PlantStatus, error)
}

type PlantHandler struct {
	plants PlantService
}

func NewPlantHandler(plants PlantService) *PlantHandler {
	return &PlantHandler{plants: plants}
}

// POST /api/plants
func (h *PlantHandler) CreatePlant(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	var req struct {
		Kind string `json:"kind"`
	}
	// An empty body selects the default kind.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondAppError(c, apierr.InvalidRequest(err))
			return
		}
	}
	plant, err := h.plants.CreatePlant(c.Request.Context(), memberID, req.Kind)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"plant": plant})
}

// GET /api/plants/current
func (h *PlantHandler) GetCurrent(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	status, err := h.plants.CurrentPlant(c.Request.Context(), memberID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// POST /api/plants/activities
func (h *PlantHandler) SubmitActivity(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	var req struct {
		ActivityType string `json:"activity_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAppError(c, apierr.InvalidRequest(err))
		return
	}
	res, err := h.plants.SubmitActivity(c.Request.Context(), memberID, req.ActivityType)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"activity":     res.Record,
		"plant":        res.Plant,
		"member_count": res.MemberCount,
		"threshold":    res.Threshold,
		"level_up":     res.LevelUp,
	})
}

// POST /api/plants/rewards
func (h *PlantHandler) ClaimReward(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	res, err := h.plants.ClaimReward(c.Request.Context(), memberID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reward": res.Claim, "plant": res.Plant})
}
