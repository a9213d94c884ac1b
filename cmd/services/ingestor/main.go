package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/envelope"
	"github.com/sensorhub/sensorhub/internal/ingest"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/queue"
	"github.com/sensorhub/sensorhub/internal/services"
	"github.com/sensorhub/sensorhub/internal/storage"
	"github.com/sensorhub/sensorhub/internal/subscriber"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	nodeID := flag.String("node-id", "", "Override ingest.node_id")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *nodeID != "" {
		cfg.Ingest.NodeID = *nodeID
	}

	// 2. Initialize logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Ingestor starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime,
		"node_id", cfg.Ingest.NodeID, "queue", cfg.Queue.Type)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Open the database
	db, err := storage.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open database", "driver", cfg.Database.Driver, "error", err)
	}
	defer func() { _ = storage.Close(db) }()

	if cfg.Database.AutoMigrate {
		if err := storage.Migrate(db); err != nil {
			logger.Fatal("Failed to migrate schema", "error", err)
		}
	}
	store := storage.NewStore(db, cfg.Location())

	// 4. Envelope codec
	codec, err := envelope.NewCodec(cfg.Queue.Compression)
	if err != nil {
		logger.Fatal("Invalid queue compression", "error", err)
	}

	// 5. Ingest service, with the alert fan-out when enabled
	svc := services.NewIngestService(logger, store)
	if cfg.Ingest.PublishAlerts {
		publisher, err := queue.NewPublisher(cfg.Queue)
		if err != nil {
			logger.Error("Queue publisher unavailable, alerts will not be published", "error", err)
		} else {
			defer func() { _ = publisher.Close() }()
			svc.WithAlertPublisher(publisher, codec, cfg.Queue.Subjects.Alerts)
		}
	}

	// 6. Subscriber
	sub, err := subscriber.NewSubscriber(cfg.Queue, subscriber.Config{
		NodeID: cfg.Ingest.NodeID,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Failed to create subscriber", "error", err)
	}
	defer func() { _ = sub.Close() }()

	// 7. Consume
	consumer := ingest.NewConsumer(logger, sub, svc, codec, cfg.Queue.Subjects)
	if err := consumer.Start(ctx); err != nil {
		logger.Fatal("Failed to start consumer", "error", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down ingestor...")
	consumer.Stop()
	cancel()

	logger.Info("Ingestor exited")
}
