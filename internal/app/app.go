package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-backend/internal/data/db"
	"github.com/yungbote/neurobridge-backend/internal/directory"
	"github.com/yungbote/neurobridge-backend/internal/observability"
	"github.com/yungbote/neurobridge-backend/internal/platform/logger"
	"github.com/yungbote/neurobridge-backend/internal/platform/redisx"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Router    *gin.Engine
	Cfg       Config
	Repos     Repos
	Engines   Engines
	otelClose func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelClose := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "neurobridge-task-engine",
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.Migrate(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	cache, err := redisx.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init redis cache: %w", err)
	}

	dir, err := directory.LoadFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load directory snapshot: %w", err)
	}

	reposet := wireRepos(theDB, log)

	engines, err := wireEngines(theDB, log, cfg, reposet, cache, dir, metrics)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("wire engines: %w", err)
	}

	handlerset := wireHandlers(log, theDB, reposet, engines)
	mw := wireMiddleware(log, metrics)
	router := wireRouter(log, handlerset, mw)

	return &App{
		Log:       log,
		DB:        theDB,
		Router:    router,
		Cfg:       cfg,
		Repos:     reposet,
		Engines:   engines,
		otelClose: otelClose,
	}, nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	if addr == "" {
		addr = a.Cfg.ListenAddr
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelClose != nil {
		_ = a.otelClose(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
