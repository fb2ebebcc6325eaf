// The worker consumes artifact-created events from the queue, validates
// each new "latest" snapshot and reports the verdict to the chat-ops
// channel.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/pos-harmonizer/internal/config"
	"github.com/ignite/pos-harmonizer/internal/events"
	"github.com/ignite/pos-harmonizer/internal/notify"
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

	if cfg.Queue.URL == "" {
		log.Fatal("queue.url (or SQS_QUEUE_URL) must be configured for the worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	notifier := notify.NewTeamsNotifier(cfg.Notify.TeamsWebhookURL)
	consumer := events.NewConsumer(
		sqs.NewFromConfig(awsCfg),
		cfg.Queue.URL,
		store,
		notifier,
		cfg.Storage.GetProcessedPrefix(),
		cfg.Pipeline.GetLatestPrefix(),
	)
	consumer.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("worker shutting down", "signal", sig.String())
	consumer.Stop()
	cancel()
}
