package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventfeed/internal/api"
	"eventfeed/internal/application/factories/infrastructure"
	"eventfeed/internal/config"
	"eventfeed/internal/infrastructure/postgres"
	"eventfeed/internal/usecase"
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

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Repositories
	orderRepo := postgres.NewOrderRepository(pgPool)
	eventRepo := postgres.NewEventRepository(pgPool, cfg.Feed.NotifyChannel)
	consumerRepo := postgres.NewConsumerRepository(pgPool)
	txManager := postgres.NewTxManager(pgPool)

	// UseCases
	createOrderUC := usecase.NewCreateOrder(txManager, orderRepo, eventRepo)
	cancelOrderUC := usecase.NewCancelOrder(txManager, orderRepo, eventRepo)
	getOrderUC := usecase.NewGetOrder(redisClient, orderRepo)

	handlers := api.NewHandlers(createOrderUC, cancelOrderUC, getOrderUC, consumerRepo)
	apiHandler := api.NewRouter(handlers, redisClient)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: apiHandler,
	}

	go func() {
		logger.Info("api server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("api server exited")
}
