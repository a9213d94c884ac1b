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
	"github.com/sensorhub/sensorhub/internal/handlers"
	"github.com/sensorhub/sensorhub/internal/ingest"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/queue"
	"github.com/sensorhub/sensorhub/internal/router"
	"github.com/sensorhub/sensorhub/internal/services"
	"github.com/sensorhub/sensorhub/internal/storage"
	"github.com/sensorhub/sensorhub/internal/subscriber"
	"github.com/sensorhub/sensorhub/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	handlers.Version = Version

	logger.Info("SensorHub API starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

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

	loc := cfg.Location()
	logger.Info("Database ready", "driver", cfg.Database.Driver, "timezone", loc.String())
	store := storage.NewStore(db, loc)

	// The alert fan-out is best effort, so a broker outage does not stop the API
	var publisher queue.Publisher
	if cfg.Ingest.PublishAlerts {
		logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
		publisher, err = queue.NewPublisher(cfg.Queue)
		if err != nil {
			logger.Error("Queue unavailable, alerts will not be published", "error", err)
			publisher = nil
		} else {
			defer func() { _ = publisher.Close() }()
		}
	}

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all writes will be allowed")
	}

	app, err := router.New(logger, store, publisher, cfg)
	if err != nil {
		logger.Fatal("Failed to build router", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// In-process ingestion, mostly for the memory queue in development
	var consumer *ingest.Consumer
	if cfg.Ingest.Enabled {
		consumer, err = startConsumer(ctx, logger, cfg, store, publisher)
		if err != nil {
			logger.Fatal("Failed to start ingest consumer", "error", err)
		}
	}

	go func() {
		addr := cfg.ServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if consumer != nil {
		consumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func startConsumer(ctx context.Context, logger *logging.Logger, cfg *config.Config, store *storage.Store, publisher queue.Publisher) (*ingest.Consumer, error) {
	codec, err := envelope.NewCodec(cfg.Queue.Compression)
	if err != nil {
		return nil, err
	}

	sub, err := subscriber.NewSubscriber(cfg.Queue, subscriber.Config{
		NodeID: cfg.Ingest.NodeID,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	svc := services.NewIngestService(logger, store)
	if publisher != nil {
		svc.WithAlertPublisher(publisher, codec, cfg.Queue.Subjects.Alerts)
	}

	consumer := ingest.NewConsumer(logger, sub, svc, codec, cfg.Queue.Subjects)
	if err := consumer.Start(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return consumer, nil
}
