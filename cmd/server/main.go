package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"github.com/erain9/limitbook/config"
	"github.com/erain9/limitbook/pkg/db/queue"
	"github.com/erain9/limitbook/pkg/engine"
	"github.com/erain9/limitbook/pkg/gateway"
	"github.com/erain9/limitbook/pkg/marketdata"
	"github.com/erain9/limitbook/pkg/messaging/kafka"
	"github.com/erain9/limitbook/pkg/otel"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Server.LogFormat == "pretty" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()

	// Initialize OpenTelemetry
	cleanup, err := otel.Init(otel.Config{
		ServiceName:      "limitbook",
		ServiceVersion:   "1.0.0",
		Endpoint:         "localhost:4317",
		CollectorEnabled: true,
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	if err := otel.StartRuntimeMetrics(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start runtime metrics")
	}

	// The engine publishes execution reports through the pooled Kafka sender.
	manager := engine.NewManager(engine.WithMessageSender(&queue.PooledSender{}))
	defer manager.Close()

	// Top-of-book snapshots go to Redis so quote reads never touch matching.
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create zap logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	cache := marketdata.NewRedisCache(
		marketdata.GetRedisClient(),
		"limitbook",
		time.Duration(cfg.MarketData.SnapshotTTLSec)*time.Second,
		zapLogger,
	)
	defer cache.Close()

	publisher := marketdata.NewPublisher(manager, cache,
		time.Duration(cfg.MarketData.SnapshotIntervalMs)*time.Millisecond, zapLogger)
	go publisher.Run(ctx)

	// Optional development tail of the reports topic.
	if kafkaConsumer, err := kafka.SetupConsumer(ctx, logger); err == nil && kafkaConsumer != nil {
		defer kafkaConsumer.Close()
	}

	// The gateway is the single order-entry path.
	gwCfg, err := gateway.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load gateway configuration")
	}
	gwCfg.KafkaBrokerAddr = cfg.Kafka.BrokerAddr
	gwCfg.CommandsTopic = cfg.Kafka.CommandsTopic

	gw, err := gateway.New(gwCfg, manager, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create gateway")
	}
	defer gw.Close()

	go func() {
		logger.Info().
			Str("broker", gwCfg.KafkaBrokerAddr).
			Str("topic", gwCfg.CommandsTopic).
			Msg("Starting order-entry gateway")
		if err := gw.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("Gateway stopped")
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	cancel()

	logger.Info().Msg("Shutdown complete")
}
