package main

import (
	"context"
	"errors"

	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/handlers"
	"github.com/huangang/peerreview/internal/middleware"
	"github.com/huangang/peerreview/internal/models"
	"github.com/huangang/peerreview/internal/services"
	"github.com/huangang/peerreview/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	rc      *services.ReviewContext
	hub     *services.SSEHub
	digest  *services.DigestService
	redis   *redis.Client
	limiter *middleware.RateLimiter

	healthHandler    *handlers.HealthHandler
	identityHandler  *handlers.IdentityHandler
	reviewHandler    *handlers.ReviewHandler
	dashboardHandler *handlers.DashboardHandler
	sseHandler       *handlers.SSEHandler
}

// bootstrap initializes all application dependencies: database, review context, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	ids, outcome, err := services.NewInitializer(db, &cfg.Review).Initialize(cfg.Database.InitMode)
	if err != nil {
		if errors.Is(err, services.ErrInitModeRequired) {
			logger.Fatalf("The rating store already holds data: set database.init_mode (or INIT_MODE) to %q or %q",
				config.InitModeReset, config.InitModeResume)
		}
		logger.Fatalf("Failed to initialize rating store: %v", err)
	}

	var drafts services.DraftStore = services.NewMemoryDraftStore()
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, drafts stay in memory")
			redisClient.Close()
			redisClient = nil
		} else {
			drafts = services.NewRedisDraftStore(redisClient, "")
			logger.Infof("[Drafts] Using Redis at %s", cfg.Redis.Addr)
		}
	}

	rc := services.NewReviewContext(db, &cfg.Review, ids, drafts)
	if outcome == services.InitResumed {
		if err := rc.Identity.Hydrate(); err != nil {
			logger.Fatalf("Failed to restore browser bindings: %v", err)
		}
	}

	hub := services.NewSSEHub()
	tracker := services.NewCompletionTracker(db, ids)
	reporter := services.NewReportService(db, ids)

	digest := services.NewDigestService(cfg.Digest, tracker, services.NewHolidayService())
	if err := digest.StartScheduler(); err != nil {
		logger.Fatalf("Failed to start digest scheduler: %v", err)
	}

	return &appServices{
		rc:      rc,
		hub:     hub,
		digest:  digest,
		redis:   redisClient,
		limiter: middleware.NewRateLimiter(5, 20),

		healthHandler:    handlers.NewHealthHandler(db, hub),
		identityHandler:  handlers.NewIdentityHandler(rc),
		reviewHandler:    handlers.NewReviewHandler(rc, services.NewSubmissionService(db, rc, hub)),
		dashboardHandler: handlers.NewDashboardHandler(tracker, reporter, services.NewExportService(ids, tracker, reporter)),
		sseHandler:       handlers.NewSSEHandler(hub),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.digest.StopScheduler()
	s.limiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if sqlDB, err := models.GetDB().DB(); err == nil {
		sqlDB.Close()
	}
}
