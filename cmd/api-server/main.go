package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/apiserver"
	"github.com/lightnindragon/listgenius/pkg/apiserver/handlers"
	"github.com/lightnindragon/listgenius/pkg/auth"
	"github.com/lightnindragon/listgenius/pkg/config"
	"github.com/lightnindragon/listgenius/pkg/logging"
	"github.com/lightnindragon/listgenius/pkg/queue"
	"github.com/lightnindragon/listgenius/pkg/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	if err := store.AutoMigrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	runQueue := queue.NewRunQueueProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.RunTopic)
	defer runQueue.Close()

	tokens := auth.NewServiceTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	server := apiserver.NewServer(&cfg.Server, apiserver.Dependencies{
		Tokens: tokens,
		Runs:   handlers.NewRunHandler(postgres.NewRunRepository(store.DB()), runQueue, logger),
		Posts:  handlers.NewPostHandler(postgres.NewPostRepository(store.DB()), logger),
	}, logger)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- server.Start()
	}()
	go func() {
		logger.Info("starting metrics server", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down api server", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down metrics server", zap.Error(err))
	}
}
