package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sociallink/backend/internal/api"
	"github.com/sociallink/backend/internal/api/auth"
	"github.com/sociallink/backend/internal/api/comment"
	"github.com/sociallink/backend/internal/api/post"
	"github.com/sociallink/backend/internal/api/reaction"
	"github.com/sociallink/backend/internal/cache"
	"github.com/sociallink/backend/internal/db"
	"github.com/sociallink/backend/internal/queue"
	"github.com/sociallink/backend/internal/service"
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
	logger.Info("Starting Sociallink API Server")

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

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	brokerOpt, err := queue.RedisOpt(&cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to configure job queue", zap.Error(err))
	}
	jobs := queue.NewClient(brokerOpt, &cfg.Queue)
	defer jobs.Close()
	inspector := queue.NewInspector(brokerOpt)
	defer inspector.Close()

	repo := db.NewRepository(database.DB)
	posts := service.NewPostService(repo)
	postCache := cache.NewPostCache(redisCache)
	handlers := api.Handlers{
		Auth: auth.NewHandler(
			service.NewAuthService(repo),
			service.NewUserService(repo),
			cache.NewUserCache(redisCache),
			jobs,
			cfg,
		),
		Posts:     post.NewHandler(postCache, posts, jobs),
		Comments:  comment.NewHandler(cache.NewCommentCache(redisCache), service.NewCommentService(repo), jobs),
		Reactions: reaction.NewHandler(
			cache.NewReactionCache(redisCache),
			postCache,
			service.NewReactionService(repo),
			posts,
			jobs,
		),
	}

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	checks := map[string]api.HealthChecker{
		"database": database,
		"cache":    redisCache,
	}
	api.NewRouter(handlers, cfg, checks, inspector).SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
