package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/teamspace/hub/internal/middleware"
	"github.com/teamspace/hub/internal/modules/auth"
	"github.com/teamspace/hub/internal/modules/gateway"
	"github.com/teamspace/hub/internal/modules/room"
	"github.com/teamspace/hub/internal/pkg/response"
)

func (a *App) registerRoutes(authSvc *auth.Service) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Rate limiting runs on every route (requires Redis).
	if a.rc != nil {
		r.Use(middleware.RateLimit(a.rc.Raw()))
	}

	root := r.Group("")
	api := r.Group("/api")

	api.GET("/health", a.health)
	api.GET("/cron", authMW, func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})

	auth.NewHandler(authSvc).RegisterRoutes(api, authMW)
	room.NewHandler(room.NewService(db)).RegisterRoutes(api, authMW)
	gateway.RegisterRoutes(root, api, a.gateway)
}

func (a *App) health(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"uptime": time.Since(processStart).Truncate(time.Second).String(),
	}

	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
	} else {
		status["database"] = "ok"
	}

	switch {
	case a.rc == nil:
		status["redis"] = "disabled"
	default:
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := a.rc.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
		} else {
			status["redis"] = "ok"
		}
	}

	response.OK(c, status)
}

var processStart = time.Now()
