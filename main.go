package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/handlers"
	"github.com/SAP-F-2025/exam-service/internal/integrations"
	"github.com/SAP-F-2025/exam-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
	"github.com/SAP-F-2025/exam-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis only backs the read caches; the service runs without it
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	publisher, err := newEventPublisher(cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	serviceManager := services.NewServiceManager(services.ServiceManagerConfig{
		Repository: repoManager.GetRepository(),
		Publisher:  publisher,
		Generator:  integrations.NewQuestionGenerator(cfg.AI, slogLogger),
		Validator:  validator.New(),
		Logger:     slogLogger,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.AllowedOrigins)
	handlers.NewHandlerManager(serviceManager, cfg, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Services first so the publisher flushes before the pool closes
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close database", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close redis", "error", err)
		}
	}

	logger.Info("Server exited")
}

// newEventPublisher publishes to Kafka when brokers are configured and to an
// in-process channel otherwise
func newEventPublisher(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	if cfg.Kafka.Enabled() {
		logger.Info("Publishing events to Kafka", "brokers", cfg.Kafka.Brokers)
		return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix, logger)
	}

	logger.Info("Kafka not configured, publishing events in-process")
	publisher, _ := events.NewGoChannelPublisher(logger)
	return publisher, nil
}
