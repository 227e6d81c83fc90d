package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/data/db"
	"github.com/yungbote/famspace-backend/internal/data/repos"
	apphttp "github.com/yungbote/famspace-backend/internal/http"
	"github.com/yungbote/famspace-backend/internal/observability"
	"github.com/yungbote/famspace-backend/internal/platform/logger"
	"github.com/yungbote/famspace-backend/internal/realtime"
	"github.com/yungbote/famspace-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    repos.Set
	Services Services
	Registry *realtime.Registry
	Bus      bus.Bus
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Observability.Tracing)
	metrics := observability.Init(log, cfg.Observability.Metrics)

	theDB, err := openDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	if err := db.SeedCatalog(theDB, log); err != nil {
		log.Sync()
		return nil, fmt.Errorf("seed plan catalog: %w", err)
	}

	log.Info("Wiring repos...")
	reposet := repos.NewSet(theDB, log)

	registry := realtime.NewRegistry(log)
	var realtimeBus bus.Bus
	if cfg.RedisAddr != "" {
		realtimeBus, err = bus.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			// A single instance still serves its own peers without the bus.
			log.Warn("Redis realtime bus unavailable; delivering locally", "error", err)
			realtimeBus = nil
		}
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, registry, realtimeBus, metrics)
	if err != nil {
		log.Sync()
		return nil, err
	}

	server := apphttp.NewServer(cfg.HTTPAddr, wireRouterConfig(log, cfg, metrics, serviceset, registry, theDB))

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Registry:     registry,
		Bus:          realtimeBus,
		Metrics:      metrics,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

func openDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case DBDriverSQLite:
		svc, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return svc.DB(), nil
	default:
		svc, err := db.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return svc.DB(), nil
	}
}

// Run serves HTTP and the realtime bus forwarder until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.RegisterDBStats(a.Log, a.DB, a.Cfg.DBDriver)
	a.Metrics.StartRedisProbe(gctx, a.Log, a.Cfg.RedisAddr)
	a.Metrics.StartSLOEvaluator(gctx, a.Log, a.Cfg.Observability.SLO)

	if a.Bus != nil {
		if err := a.Bus.StartForwarder(gctx, func(m realtime.Message) { a.Registry.Broadcast(m) }); err != nil {
			return fmt.Errorf("start realtime forwarder: %w", err)
		}
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
		return a.Server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		// Websocket connections are hijacked, so the HTTP server does not close them.
		a.Registry.CloseAll()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("realtime bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
