package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/db"
	"github.com/sociallink/backend/internal/mail"
	"github.com/sociallink/backend/internal/queue"
	"github.com/sociallink/backend/internal/service"
	"github.com/sociallink/backend/internal/worker"
	"github.com/sociallink/backend/pkg/config"
	"github.com/sociallink/backend/pkg/logging"
	"github.com/sociallink/backend/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Sociallink Worker")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	brokerOpt, err := queue.RedisOpt(&cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to configure job queue", zap.Error(err))
	}

	repo := db.NewRepository(database.DB)
	stores := worker.Stores{
		Posts:     service.NewPostService(repo),
		Reactions: service.NewReactionService(repo),
		Comments:  service.NewCommentService(repo),
		Users:     service.NewUserService(repo),
		Auth:      service.NewAuthService(repo),
		Mailer:    mail.NewMailer(&cfg.Mail),
	}

	server := queue.NewServer(brokerOpt, &cfg.Queue)
	if err := worker.Register(server, stores, cfg.Queue.Concurrency); err != nil {
		logger.Fatal("Failed to register job handlers", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry.ServeMetrics(ctx, &cfg.Telemetry)

	if err := server.Run(ctx); err != nil {
		logger.Error("Job server failed", zap.Error(err))
		return
	}
	logger.Info("Worker exited")
}
