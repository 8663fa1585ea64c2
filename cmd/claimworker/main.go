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
	"eventfeed/internal/infrastructure/postgres"
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
		logger.Info("claim worker metrics listening", "port", cfg.HTTP.MetricsPort)
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
	txManager := postgres.NewTxManager(pgPool)

	handlers := worker.NewRegistry()
	if err := handlers.RegisterDefault(func(ctx context.Context, e *event.Event) error {
		logger.Info("claimed event processed",
			"event_id", e.ID, "object_type", e.ObjectType, "event_type", e.EventType)
		return nil
	}); err != nil {
		logger.Error("failed to register claim handler", "error", err)
		os.Exit(1)
	}

	listener := postgres.NewListener(pgPool, cfg.Feed.NotifyChannel, logger)

	claimWorker := worker.NewClaimWorker(worker.ClaimWorkerConfig{
		TickInterval: cfg.Feed.TickInterval,
		SweepLimit:   cfg.Feed.SweepLimit,
		BackoffSteps: cfg.Feed.BackoffTableLength,
	}, txManager, eventRepo, handlers, listener.Hints(), logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return listener.Run(groupCtx)
	})
	group.Go(func() error {
		return claimWorker.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("claim worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("claim worker exited")
}
