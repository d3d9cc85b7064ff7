package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/fittrack/internal/bootstrap"
	"github.com/mansoorceksport/fittrack/internal/config"
	"github.com/mansoorceksport/fittrack/internal/logger"
	"github.com/mansoorceksport/fittrack/internal/middleware"
	"github.com/mansoorceksport/fittrack/internal/repository"
	"github.com/mansoorceksport/fittrack/internal/server"
	"github.com/mansoorceksport/fittrack/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("starting fittrack api", zap.String("version", cfg.OTEL.ServiceVersion))

	ctx := context.Background()

	// Grafana Cloud style Basic auth is derived from instance id and token
	otelProvider, err := telemetry.Initialize(ctx, telemetry.ConfigFrom(cfg.OTEL), zl)
	if err != nil {
		zl.Warn("opentelemetry not initialized", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			zl.Warn("opentelemetry shutdown", zap.Error(err))
		}
	}()

	deps := server.AppDependencies{Config: cfg, Logger: zl}

	// Firebase login is optional
	if cfg.Firebase.Enabled() {
		authClient, err := middleware.InitFirebase(ctx, cfg.Firebase)
		if err != nil {
			zl.Fatal("failed to initialize firebase", zap.Error(err))
		}
		deps.AuthClient = authClient
		zl.Info("firebase login enabled")
	}

	mongoClient, mongoDB, err := bootstrap.ConnectMongo(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("mongodb unavailable", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			zl.Warn("error disconnecting from mongodb", zap.Error(err))
		}
	}()
	deps.MongoDB = mongoDB

	redisClient, err := bootstrap.ConnectRedis(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("redis unavailable", zap.Error(err))
	}
	defer redisClient.Close()
	deps.RedisClient = redisClient

	if cfg.S3.Enabled() {
		files, err := repository.NewS3FileRepository(ctx, cfg.S3)
		if err != nil {
			zl.Warn("profile picture storage disabled", zap.Error(err))
		} else {
			deps.FileRepo = files
		}
	}

	app := server.NewApp(deps)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		zl.Info("shutting down gracefully")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	zl.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		zl.Fatal("failed to start server", zap.Error(err))
	}
}
