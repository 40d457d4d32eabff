package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	redisclient "github.com/codedeck/codedeck-backend/internal/clients/redis"
	"github.com/codedeck/codedeck-backend/internal/db"
	"github.com/codedeck/codedeck-backend/internal/docstore"
	"github.com/codedeck/codedeck-backend/internal/observability"
	"github.com/codedeck/codedeck-backend/internal/outbox"
	"github.com/codedeck/codedeck-backend/internal/platform/logger"
	"github.com/codedeck/codedeck-backend/internal/utils"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	relay        *outbox.Relay
	otelShutdown func(context.Context) error
	srv          *http.Server
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := utils.GetEnv("LOG_MODE", "development", nil)
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	rdb, err := redisclient.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	store, err := docstore.NewRedisViewStore(rdb, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init view store: %w", err)
	}

	reposet := wireRepos(theDB, log)
	serviceset, relay := wireServices(theDB, log, cfg, reposet, store)
	handlerset := wireHandlers(log, serviceset)
	mw := wireMiddleware(log, serviceset)
	router := wireRouter(cfg, handlerset, mw)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		relay:    relay,
	}, nil
}

// Start launches the outbox relay and the HTTP server. Blocks until the
// server stops.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: a.Cfg.ServiceName,
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})

	a.relay.Start(ctx)

	a.srv = &http.Server{
		Addr:    ":" + a.Cfg.Port,
		Handler: a.Router,
	}
	a.Log.Info("starting http server", "port", a.Cfg.Port)
	if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server, the relay loop, and flushes telemetry.
func (a *App) Shutdown(ctx context.Context) {
	if a.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("http shutdown failed", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.otelShutdown != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(flushCtx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
