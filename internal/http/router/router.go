// Package router assembles the Gin engine from the registered modules.
package router

import (
	"net/http"

	apphttp "event_messaging_backend/internal/http"
	"event_messaging_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the engine, mounts shared middleware, and lets every module
// register its routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app))

	engine.GET("/api/health", func(c *gin.Context) {
		if app.Health != nil {
			if err := app.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := httpkit.AuthRequired(app.Config)

	v1 := engine.Group("/api/v1")
	ops := v1.Group("")
	ops.Use(authMiddleware)
	admin := v1.Group("/admin")
	admin.Use(authMiddleware, httpkit.RequireRole("admin"))

	// Webhooks carry their own shared-secret auth and a stricter limiter.
	webhookLimiter := httpkit.NewIPRateLimiter(rate.Limit(30.0/60.0), 30, app.Logger)

	routerCtx := &apphttp.RouterContext{
		Engine:             engine,
		V1:                 v1,
		Ops:                ops,
		Admin:              admin,
		Config:             app.Config,
		WebhookAuth:        httpkit.APIKeyRequired(app.Config),
		WebhookRateLimiter: webhookLimiter.RateLimit(),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Info("module routes registered", "module", module.Name())
	}

	return engine
}

func corsMiddleware(app *apphttp.App) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if app.Config.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = app.Config.GetCORSOrigins()
	}
	corsConfig.AllowCredentials = app.Config.GetCORSAllowCreds()
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization", httpkit.WebhookAPIKeyHeader,
	}
	return cors.New(corsConfig)
}
