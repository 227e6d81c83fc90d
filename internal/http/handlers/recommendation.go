package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/http/response"
	"github.com/yungbote/famspace-backend/internal/modules/recommend"
)

type Recommender interface {
	RecommendForMember(ctx context.Context, callerID, familyID uuid.UUID) (*recommend.Recommendation, error)
}

type RecommendationHandler struct {
	recommender Recommender
}

func NewRecommendationHandler(recommender Recommender) *RecommendationHandler {
	return &RecommendationHandler{recommender: recommender}
}

// GET /api/families/:id/recommendation
func (h *RecommendationHandler) GetRecommendation(c *gin.Context) {
	memberID, ok := requireMember(c)
	if !ok {
		return
	}
	familyID, ok := uuidParam(c, "id", "invalid_family_id")
	if !ok {
		return
	}
	rec, err := h.recommender.RecommendForMember(c.Request.Context(), memberID, familyID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recommendation": rec})
}
