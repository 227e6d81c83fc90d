package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/famspace-backend/internal/http/handlers"
	httpMW "github.com/yungbote/famspace-backend/internal/http/middleware"
	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthHandler           *httpH.AuthHandler
	AuthMiddleware        *httpMW.AuthMiddleware
	FamilyHandler         *httpH.FamilyHandler
	RecommendationHandler *httpH.RecommendationHandler
	PlantHandler          *httpH.PlantHandler

	// Websocket endpoints authenticate during the upgrade, outside the auth middleware.
	PlantSocket    nethttp.Handler
	ActivitySocket nethttp.Handler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Realtime
	if cfg.PlantSocket != nil {
		r.GET("/ws/plant", gin.WrapH(cfg.PlantSocket))
	}
	if cfg.ActivitySocket != nil {
		r.GET("/ws/activity", gin.WrapH(cfg.ActivitySocket))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/token", cfg.AuthHandler.IssueToken)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Family
		if cfg.FamilyHandler != nil {
			protected.POST("/families", cfg.FamilyHandler.CreateFamily)
			protected.POST("/families/:id/join", cfg.FamilyHandler.JoinFamily)
			protected.GET("/me/family", cfg.FamilyHandler.GetMembership)
			protected.POST("/surveys", cfg.FamilyHandler.SubmitSurvey)
		}

		// Recommendation
		if cfg.RecommendationHandler != nil {
			protected.GET("/families/:id/recommendation", cfg.RecommendationHandler.GetRecommendation)
		}

		// Plants
		if cfg.PlantHandler != nil {
			protected.POST("/plants", cfg.PlantHandler.CreatePlant)
			protected.GET("/plants/current", cfg.PlantHandler.GetCurrent)
			protected.POST("/plants/activities", cfg.PlantHandler.SubmitActivity)
			protected.POST("/plants/rewards", cfg.PlantHandler.ClaimReward)
		}
	}

	return r
}
