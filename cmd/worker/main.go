package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	contractsmq "sciencehub/contracts/mq"
	"sciencehub/internal/config"
	"sciencehub/internal/mqhandler"
	"sciencehub/internal/repository"
	"sciencehub/internal/service/chat"
	"sciencehub/pkg/circuitbreaker"
	"sciencehub/pkg/db"
	"sciencehub/pkg/logger"
	"sciencehub/pkg/mq"
	"sciencehub/pkg/outbox"
	"sciencehub/pkg/redis"
	"sciencehub/pkg/util"
)

const (
	chatProvisionQueue = "application.accepted.chat.q"
	maxDeliveryRetries = 5
	requeueBatchSize   = 500
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logger.NewLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting worker service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, 24*time.Hour, logger)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	logger.Info("DB ready")

	// MQ
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("MQ publisher init failed", zap.Error(err))
	}
	defer publisher.Close()

	// repositories
	outboxRepo := outbox.NewRepository(dbConn)
	applicationRepo := repository.NewApplicationRepository(dbConn, outboxRepo)
	chatRepo := repository.NewChatRepository(dbConn)

	chatService := chat.NewService(chatRepo, applicationRepo, logger)
	acceptedHandler := mqhandler.NewApplicationAcceptedHandler(chatService, deduper, logger)

	// -------------------------
	// Outbox dispatcher
	// -------------------------
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, logger).
		WithInterval(cfg.Outbox.Interval()).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries).
		WithBreaker(circuitbreaker.New(circuitbreaker.DefaultConfig()))
	go dispatcher.Start(ctx)

	// -------------------------
	// Failed event requeue
	// -------------------------
	replayService := outbox.NewReplayService(outboxRepo, publisher, logger)
	scheduler := cron.New()
	if cfg.Outbox.ReplaySchedule != "" {
		_, err := scheduler.AddFunc(cfg.Outbox.ReplaySchedule, func() {
			if _, err := replayService.RequeueFailed(ctx, requeueBatchSize); err != nil {
				logger.Error("Requeue of failed outbox events failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("Invalid outbox replay schedule",
				zap.String("schedule", cfg.Outbox.ReplaySchedule),
				zap.Error(err),
			)
		}
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	// -------------------------
	// Chat provisioning consumer
	// -------------------------
	logger.Info("Init consumer", zap.String("queue", chatProvisionQueue))
	consumer, err := mq.NewConsumer(
		cfg.MQ.URL,
		chatProvisionQueue,
		contractsmq.RoutingKeyApplicationAccepted,
		logger,
	)
	if err != nil {
		logger.Fatal("Chat provisioning consumer init failed", zap.Error(err))
	}
	consumer.SetHandler(acceptedHandler.Handle)
	consumer.WithRetryPolicy(retryCounter, publisher, maxDeliveryRetries)
	defer consumer.Close()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.StartConsuming()
	}()

	logger.Info("Worker running")
	select {
	case <-ctx.Done():
		logger.Info("Shutting down worker")
		consumer.Stop()
	case err := <-consumerErr:
		if err != nil {
			logger.Error("Chat provisioning consumer stopped", zap.Error(err))
		}
	}
}
