package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/pos-harmonizer/internal/api"
	"github.com/ignite/pos-harmonizer/internal/config"
	"github.com/ignite/pos-harmonizer/internal/harmonize"
	"github.com/ignite/pos-harmonizer/internal/pkg/logger"
	"github.com/ignite/pos-harmonizer/internal/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx := context.Background()
	store, err := storage.New(ctx, storage.Config{
		Type:       cfg.Storage.Type,
		S3Bucket:   cfg.Storage.S3Bucket,
		AWSRegion:  cfg.Storage.AWSRegion,
		AWSProfile: cfg.Storage.AWSProfile,
		LocalPath:  cfg.Storage.LocalPath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Redis is optional: without it runs are not serialized per input and
	// the latest artifacts keep plain last-writer-wins semantics.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, run locking disabled", "addr", cfg.Redis.Addr, "error", err)
			redisClient = nil
		}
		cancel()
	}

	harmonizer := harmonize.New(harmonize.Config{
		LatestPrefix:  cfg.Pipeline.GetLatestPrefix(),
		HistoryPrefix: cfg.Pipeline.GetHistoryPrefix(),
	})

	handlers := api.NewHandlers(
		store,
		harmonizer,
		redisClient,
		cfg.Storage.GetRawPrefix(),
		cfg.Storage.GetProcessedPrefix(),
		time.Duration(cfg.Pipeline.GetLockTTLSeconds())*time.Second,
	)
	healthChecker := api.NewHealthChecker(store, redisClient, cfg.Storage.Type, cfg.Queue.URL)

	server := api.NewServer(cfg.Server, handlers, healthChecker)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Shutdown error: %v", err)
		}
	}
}
