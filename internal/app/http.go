package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/famspace-backend/internal/http"
	httpH "github.com/yungbote/famspace-backend/internal/http/handlers"
	httpMW "github.com/yungbote/famspace-backend/internal/http/middleware"
	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"github.com/yungbote/famspace-backend/internal/realtime"
)

func wireRouterConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, svcs Services, registry *realtime.Registry, db *gorm.DB) apphttp.RouterConfig {
	log.Info("Wiring handlers...")
	socketCfg := realtime.HandlerConfig{
		Log:           log,
		Registry:      registry,
		Verifier:      svcs.Auth,
		Families:      svcs.Family,
		VerifyTimeout: cfg.VerifyTimeout,
		QueueSize:     cfg.RealtimeQueueSize,
	}
	var pinger httpH.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	}
	return apphttp.RouterConfig{
		Log:                   log,
		Metrics:               metrics,
		ServiceName:           cfg.ServiceName,
		CORSOrigins:           cfg.CORSOrigins,
		HealthHandler:         httpH.NewHealthHandler(pinger),
		AuthHandler:           httpH.NewAuthHandler(log, svcs.Auth),
		AuthMiddleware:        httpMW.NewAuthMiddleware(log, svcs.Auth, httpMW.WithVerifyTimeout(cfg.VerifyTimeout)),
		FamilyHandler:         httpH.NewFamilyHandler(svcs.Family),
		RecommendationHandler: httpH.NewRecommendationHandler(svcs.Recommend),
		PlantHandler:          httpH.NewPlantHandler(svcs.Growth),
		PlantSocket:           realtime.NewHandler(realtime.KindPlant, socketCfg),
		ActivitySocket:        realtime.NewHandler(realtime.KindActivity, socketCfg),
	}
}
