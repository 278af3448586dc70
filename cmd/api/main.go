package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/config"
	"sciencehub/internal/handler"
	"sciencehub/internal/httpserver"
	"sciencehub/internal/repository"
	"sciencehub/internal/service/application"
	"sciencehub/internal/service/chat"
	"sciencehub/internal/service/profile"
	"sciencehub/internal/service/project"
	"sciencehub/internal/service/review"
	"sciencehub/pkg/db"
	"sciencehub/pkg/logger"
	"sciencehub/pkg/mq"
	"sciencehub/pkg/outbox"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logger.NewLogger(cfg.Debug)
	defer logger.Sync()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Fatal("Schema migration failed", zap.Error(err))
	}

	// Init Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	profileRepo := repository.NewProfileRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn)
	applicationRepo := repository.NewApplicationRepository(dbConn, outboxRepo)
	chatRepo := repository.NewChatRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)

	// Init Services
	profileService := profile.NewService(profileRepo, logger)
	projectService := project.NewService(projectRepo, logger)
	applicationService := application.NewService(applicationRepo, projectRepo, logger)
	chatService := chat.NewService(chatRepo, applicationRepo, logger)
	reviewService := review.NewService(reviewRepo, applicationRepo, logger)

	handlers := httpserver.Handlers{
		Profile:     handler.NewProfileHandler(profileService, logger),
		Project:     handler.NewProjectHandler(projectService, logger),
		Application: handler.NewApplicationHandler(applicationService, logger),
		Chat:        handler.NewChatHandler(chatService, logger),
		Review:      handler.NewReviewHandler(reviewService, logger),
	}

	// The API keeps serving without a broker; accepted applications stay
	// in the outbox until the worker publishes them.
	if publisher, err := mq.NewPublisher(cfg.MQ.URL); err != nil {
		logger.Warn("MQ publisher unavailable, outbox admin endpoints disabled", zap.Error(err))
	} else {
		defer publisher.Close()
		replayService := outbox.NewReplayService(outboxRepo, publisher, logger)
		handlers.Admin = handler.NewAdminHandler(replayService, logger)
	}

	opts := httpserver.Options{
		JWTSecret:   cfg.JWT.Secret,
		JWTAudience: cfg.JWT.Audience,
		AdminToken:  cfg.Admin.Token,
		Ready:       dbConn.Ping,
	}
	if cfg.RateLimit.MessagesPerSecond > 0 {
		opts.MessageLimiter = httpserver.NewUserRateLimiter(cfg.RateLimit.MessagesPerSecond, cfg.RateLimit.Burst)
	}
	router := httpserver.NewRouter(handlers, profileService, opts, logger)

	// Start API server
	logger.Info("Starting Science Hub API", zap.String("port", cfg.Server.Port))
	if err := router.Serve(ctx, cfg.Server.Port, 10*time.Second); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("API stopped")
}
