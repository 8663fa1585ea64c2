package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"eventfeed/internal/application/factories/infrastructure"
	"eventfeed/internal/config"
	"eventfeed/internal/domain/event"
	"eventfeed/internal/infrastructure/kafka"
	"eventfeed/internal/infrastructure/postgres"
	"eventfeed/internal/relay"
	"eventfeed/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("consumer metrics listening", "port", cfg.HTTP.MetricsPort)
		http.ListenAndServe(":"+cfg.HTTP.MetricsPort, mux)
	}()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(pgPool, cfg.Feed.NotifyChannel)
	consumerRepo := postgres.NewConsumerRepository(pgPool)

	kafkaProd := kafka.NewProducer(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	})
	defer kafkaProd.Close()

	group, groupCtx := errgroup.WithContext(ctx)

	for _, name := range cfg.Feed.Consumers {
		handlers := worker.NewRegistry()

		switch name {
		case "kafka-mirror":
			mirror := relay.NewKafkaMirror(kafkaProd, logger)
			if err := handlers.RegisterDefault(mirror.Handle); err != nil {
				logger.Error("failed to register mirror handler", "error", err)
				os.Exit(1)
			}
		default:
			// Audit consumers fall back to structured logging of every
			// matched event.
			auditLogger := logger.With("consumer", name)
			if err := handlers.RegisterDefault(func(ctx context.Context, e *event.Event) error {
				auditLogger.Info("event observed",
					"event_id", e.ID, "object_type", e.ObjectType, "event_type", e.EventType)
				return nil
			}); err != nil {
				logger.Error("failed to register audit handler", "error", err)
				os.Exit(1)
			}
		}

		loop := worker.NewRunLoop(worker.RunLoopConfig{
			Name:         name,
			BatchSize:    cfg.Feed.BatchSize,
			TickInterval: cfg.Feed.TickInterval,
			BackoffSteps: cfg.Feed.BackoffTableLength,
		}, eventRepo, consumerRepo, handlers, logger)

		group.Go(func() error {
			return loop.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil {
		logger.Error("consumer stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("consumer exited")
}
