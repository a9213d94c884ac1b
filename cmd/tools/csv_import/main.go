package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/importer"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/services"
	"github.com/sensorhub/sensorhub/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	dir := flag.String("dir", "./import", "Directory containing CSV files")
	workers := flag.Int("workers", 0, "Files imported in parallel (0 = number of CPUs, max 8)")
	batchSize := flag.Int("batch", 0, "Rows per insert (0 = default)")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := services.NewIngestService(logger, storage.NewStore(db, cfg.Location()))
	im := importer.New(logger, svc)
	im.SetWorkerCount(*workers)
	im.SetBatchSize(*batchSize)

	summary, err := im.ImportDirectory(ctx, *dir)
	if err != nil {
		logger.Fatal("Import failed", "dir", *dir, "error", err)
	}

	fmt.Println()
	fmt.Println("=== Import Summary ===")
	for _, r := range summary.Results {
		status := "ok"
		if r.Error != nil {
			status = r.Error.Error()
		}
		fmt.Printf("  %-40s records=%-8d rejected=%-6d %8s  %s\n",
			r.FilePath, r.RecordCount, r.ErrorCount, r.Duration.Round(1e6), status)
	}
	fmt.Printf("Files: %d (failed %d)  Records: %d  Rejected rows: %d\n",
		summary.Files, summary.Failed, summary.Records, summary.Rejected)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}
