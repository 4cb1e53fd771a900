package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/middleware"
	"github.com/huangang/peerreview/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger("/health"), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Identity.SessionHeader))

	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		api.GET("/roster", svc.identityHandler.Roster)

		// Dashboard and event stream carry no identity
		api.GET("/dashboard/completion", svc.dashboardHandler.Completion)
		api.GET("/dashboard/averages", svc.dashboardHandler.Averages)
		api.GET("/dashboard/export", svc.dashboardHandler.Export)
		api.GET("/events/ratings", svc.sseHandler.StreamRatingEvents)

		browser := api.Group("")
		browser.Use(middleware.BrowserIdentity(cfg.Identity), middleware.AuditLog())
		{
			browser.GET("/identity", svc.identityHandler.Resolve)
			browser.POST("/identity", svc.limiter.Middleware(), svc.identityHandler.Bind)

			reviews := browser.Group("/reviews")
			reviews.Use(middleware.ReviewerRequired(svc.rc.Identity))
			{
				reviews.GET("/form", svc.reviewHandler.Form)
				reviews.PUT("/:ratee/drafts", svc.limiter.Middleware(), svc.reviewHandler.SaveDrafts)
				reviews.POST("/:ratee/validate", svc.limiter.Middleware(), svc.reviewHandler.Validate)
				reviews.POST("/:ratee/confirm", svc.limiter.Middleware(), svc.reviewHandler.Confirm)
			}
		}
	}
}
