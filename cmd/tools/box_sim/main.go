package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sensorhub/sensorhub/internal/config"
	"github.com/sensorhub/sensorhub/internal/envelope"
	"github.com/sensorhub/sensorhub/internal/logging"
	"github.com/sensorhub/sensorhub/internal/queue"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	queueType := flag.String("queue", "", "Override queue.type (nats, redis, kafka, mqtt)")
	queueURL := flag.String("url", "", "Override queue.url")
	boxes := flag.Int("boxes", 3, "Number of simulated air quality boxes")
	interval := flag.Duration("interval", 5*time.Second, "Interval between published readings")
	garden := flag.Bool("garden", true, "Also publish garden readings and pump events")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *queueType != "" {
		cfg.Queue.Type = *queueType
	}
	if *queueURL != "" {
		cfg.Queue.URL = *queueURL
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.Queue.Type == "memory" {
		logger.Fatal("The memory queue is in-process only, pick a broker with -queue")
	}

	codec, err := envelope.NewCodec(cfg.Queue.Compression)
	if err != nil {
		logger.Fatal("Invalid queue compression", "error", err)
	}

	publisher, err := queue.NewPublisher(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL, "error", err)
	}
	defer func() { _ = publisher.Close() }()

	logger.Info("Simulator connected", "queue", cfg.Queue.Type, "boxes", *boxes, "interval", *interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := newGenerator(*boxes, *seed, cfg.Location())
	subjects := cfg.Queue.Subjects
	pumpRunning := false

	publish := func(now time.Time) {
		var batch []queue.BatchMessage
		for _, r := range gen.airReadings(now) {
			data, err := codec.Encode(envelope.KindAirReading, r)
			if err != nil {
				logger.Error("Failed to encode air reading", "box_id", r.BoxID, "error", err)
				continue
			}
			batch = append(batch, queue.BatchMessage{Subject: subjects.AirReadings, Data: data})
		}

		if *garden {
			g := gen.gardenReading(now)
			if data, err := codec.Encode(envelope.KindGardenReading, g); err == nil {
				batch = append(batch, queue.BatchMessage{Subject: subjects.GardenReadings, Data: data})
			}
			if ev, ok := gen.pumpEvent(now, g, pumpRunning); ok {
				if data, err := codec.Encode(envelope.KindPumpEvent, ev); err == nil {
					batch = append(batch, queue.BatchMessage{Subject: subjects.PumpEvents, Data: data})
					pumpRunning = ev.Status == "on"
				}
			}
		}

		pubCtx, cancel := context.WithTimeout(ctx, *interval)
		defer cancel()
		sent, err := publisher.PublishBatch(pubCtx, batch)
		if err != nil {
			logger.Error("Publish failed", "sent", sent, "total", len(batch), "error", err)
			return
		}
		logger.Info("Published readings", "messages", sent)
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	publish(time.Now())
	for {
		select {
		case <-ctx.Done():
			logger.Info("Received shutdown signal, stopping simulator")
			return
		case now := <-ticker.C:
			publish(now)
		}
	}
}
