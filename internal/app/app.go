package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/teamspace/hub/internal/config"
	"github.com/teamspace/hub/internal/database"
	"github.com/teamspace/hub/internal/middleware"
	"github.com/teamspace/hub/internal/modules/auth"
	"github.com/teamspace/hub/internal/modules/gateway"
	"github.com/teamspace/hub/internal/modules/hub"
	pkgcron "github.com/teamspace/hub/internal/pkg/cron"
	jwtpkg "github.com/teamspace/hub/internal/pkg/jwt"
	pkgredis "github.com/teamspace/hub/internal/pkg/redis"
	"github.com/teamspace/hub/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *gorm.DB
	rc      *pkgredis.Client
	hub     *hub.Hub
	gateway *gateway.Gateway
	logger  *zap.Logger
	cancel  context.CancelFunc
	sched   *pkgcron.Scheduler
}

// New initializes the application: DB → Redis → hub → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, running single-instance without cross-node fanout", zap.Error(err))
		rc = nil
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(buildCORS(cfg))

	authSvc := auth.NewService(db)

	h := hub.New(authSvc, store.NewGormStore(db), rc, logger, hub.Options{
		QueueSize:        cfg.Hub.OutboundQueueSize,
		TypingTTL:        cfg.Hub.TypingTTL(),
		MaxMessageLength: cfg.Hub.MaxMessageLength,
	})
	ctx, cancel := context.WithCancel(context.Background())
	if rc != nil {
		go h.Run(ctx)
	}

	gw := gateway.New(h, logger)

	sched := pkgcron.New()
	registerCronJobs(sched, db, logger)
	go sched.Start(ctx)

	app := &App{
		cfg:     cfg,
		router:  router,
		db:      db,
		rc:      rc,
		hub:     h,
		gateway: gw,
		logger:  logger,
		cancel:  cancel,
		sched:   sched,
	}
	app.registerRoutes(authSvc)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background goroutines and closes the realtime gateway.
func (a *App) Shutdown() {
	a.gateway.Close()
	a.cancel()
}
