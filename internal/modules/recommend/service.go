package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/famspace-backend/internal/data/repos"
	domainagg "github.com/yungbote/famspace-backend/internal/domain/aggregates"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type ServiceDeps struct {
	Log          *logger.Logger
	Engine       *Engine
	Members      repos.MemberRepo
	StoreTimeout time.Duration
}

// Service is the caller-facing entry point: it checks family access and bounds storage time.
type Service struct {
	deps ServiceDeps
	log  *logger.Logger
}

func NewService(deps ServiceDeps) *Service {
	if deps.StoreTimeout <= 0 {
		deps.StoreTimeout = 5 * time.Second
	}
	return &Service{deps: deps, log: deps.Log.With("service", "RecommendService")}
}

func (s *Service) RecommendForMember(ctx context.Context, callerID, familyID uuid.UUID) (*Recommendation, error) {
	const op = "Recommend.ForMember"
	if callerID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing caller", nil)
	}
	if familyID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing family_id", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()

	caller, err := s.deps.Members.GetByID(ctx, nil, callerID)
	if err != nil {
		s.log.Warn("caller lookup failed", "caller_id", callerID, "error", err)
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "member lookup failed", nil)
	}
	if caller == nil || !caller.InFamily(familyID) {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "caller is not a member of this family", nil)
	}
	return s.deps.Engine.Recommend(ctx, familyID)
}
