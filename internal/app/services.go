package app

import (
	"fmt"

	"gorm.io/gorm"

	dataagg "github.com/yungbote/famspace-backend/internal/data/aggregates"
	"github.com/yungbote/famspace-backend/internal/data/repos"
	"github.com/yungbote/famspace-backend/internal/modules/family"
	"github.com/yungbote/famspace-backend/internal/modules/growth"
	"github.com/yungbote/famspace-backend/internal/modules/recommend"
	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"github.com/yungbote/famspace-backend/internal/realtime"
	"github.com/yungbote/famspace-backend/internal/realtime/bus"
	"github.com/yungbote/famspace-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Emitter   services.Emitter
	Family    *family.Service
	Recommend *recommend.Service
	Growth    *growth.Service
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet repos.Set, registry *realtime.Registry, realtimeBus bus.Bus, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	var emitter services.Emitter = &services.RegistryEmitter{Registry: registry}
	if realtimeBus != nil {
		emitter = &services.RedisEmitter{Bus: realtimeBus, Fallback: emitter, Log: log}
	}

	rules, err := recommend.LoadRules(cfg.ScoringRulesPath)
	if err != nil {
		return Services{}, fmt.Errorf("load scoring rules: %w", err)
	}
	engine := recommend.NewEngine(recommend.EngineDeps{
		DB:            db,
		Log:           log,
		Members:       reposet.Members,
		Surveys:       reposet.Surveys,
		Plans:         reposet.Plans,
		Rules:         rules,
		BaseLinePrice: cfg.BaseLinePrice,
		TeenAgeBand:   cfg.TeenAgeBand,
	})

	aggregate := dataagg.NewGrowthAggregate(dataagg.GrowthAggregateDeps{
		Base: dataagg.BaseDeps{
			DB:     db,
			Log:    log,
			Runner: dataagg.NewGormTxRunner(db, dataagg.WithTxTimeout(cfg.StoreTimeout)),
			Hooks:  dataagg.NewObservabilityHooks(metrics),
		},
		Members:    reposet.Members,
		Plants:     reposet.Plants,
		Activities: reposet.Activity,
		Rewards:    reposet.Rewards,
		Location:   cfg.Location,
	})

	return Services{
		Auth:    services.NewAuthService(log, reposet.Members, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Emitter: emitter,
		Family: family.NewService(family.ServiceDeps{
			DB:           db,
			Log:          log,
			Members:      reposet.Members,
			Spaces:       reposet.Spaces,
			Plans:        reposet.Plans,
			Surveys:      reposet.Surveys,
			StoreTimeout: cfg.StoreTimeout,
		}),
		Recommend: recommend.NewService(recommend.ServiceDeps{
			Log:          log,
			Engine:       engine,
			Members:      reposet.Members,
			StoreTimeout: cfg.StoreTimeout,
		}),
		Growth: growth.NewService(growth.ServiceDeps{
			Log:          log,
			Aggregate:    aggregate,
			Members:      reposet.Members,
			Plants:       reposet.Plants,
			Activities:   reposet.Activity,
			Rewards:      reposet.Rewards,
			Notifier:     services.NewGrowthNotifier(emitter),
			StoreTimeout: cfg.StoreTimeout,
			Location:     cfg.Location,
		}),
	}, nil
}
