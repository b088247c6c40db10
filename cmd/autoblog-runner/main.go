package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/autoblog"
	"github.com/lightnindragon/listgenius/pkg/clients"
	"github.com/lightnindragon/listgenius/pkg/config"
	"github.com/lightnindragon/listgenius/pkg/eventbus"
	"github.com/lightnindragon/listgenius/pkg/logging"
	"github.com/lightnindragon/listgenius/pkg/publisher"
	"github.com/lightnindragon/listgenius/pkg/queue"
	"github.com/lightnindragon/listgenius/pkg/store/postgres"
	redisstore "github.com/lightnindragon/listgenius/pkg/store/redis"
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

	loc, err := time.LoadLocation(cfg.Autoblog.Timezone)
	if err != nil {
		logger.Fatal("invalid timezone", zap.String("timezone", cfg.Autoblog.Timezone), zap.Error(err))
	}

	store, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	if err := store.AutoMigrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient, err := redisstore.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	posts := postgres.NewPostRepository(store.DB())
	owners := postgres.NewOwnerRepository(store.DB())
	runs := postgres.NewRunRepository(store.DB())

	collab := &cfg.Collaborators
	trending := clients.NewTrendingClient(collab.TrendingURL, collab.APIKey, collab.RequestTimeout)
	writer := clients.NewWriterClient(collab.WriterURL, collab.APIKey, collab.RequestTimeout)
	quality := clients.NewQualityClient(collab.QualityURL, collab.APIKey, collab.RequestTimeout)

	fallback := cfg.Autoblog.FallbackKeywords
	if len(fallback) == 0 {
		fallback = config.DefaultFallbackKeywords
	}

	pipeline := autoblog.NewPipeline(autoblog.PipelineParams{
		Guard:     autoblog.NewDayGuard(posts, loc),
		Locker:    redisstore.NewRunLock(redisClient.Client(), cfg.Autoblog.LockTTL),
		Topics:    autoblog.NewSelector(trending, fallback, cfg.Autoblog.DefaultCategory, cfg.Autoblog.TrendingLimit, logger),
		Writer:    writer,
		Gate:      quality,
		Reviser:   quality,
		Publisher: publisher.New(posts, cfg.Autoblog.SiteBaseURL, loc, logger),
		Reviews:   posts,
		Runs:      runs,
		Notifier:  eventbus.NewPipelineNotifier(eventbus.NewBus(redisClient.Client()), logger),
		Logger:    logger,

		MaxRevisionAttempts: cfg.Autoblog.MaxRevisionAttempts,
		StageTimeout:        cfg.Autoblog.StageTimeout,
	})

	runQueue := queue.NewRunQueueConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.ClientID,
		cfg.Kafka.RunGroup,
		cfg.Kafka.RunTopic,
		cfg.Kafka.RunDLQTopic,
	)
	defer runQueue.Close()

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("starting run queue consumer", zap.String("topic", cfg.Kafka.RunTopic))
		err := runQueue.Consume(ctx, func(ctx context.Context, request *queue.RunRequest) error {
			logger.Info("processing on-demand run request",
				zap.String("request_id", request.RequestID.String()),
				zap.String("owner_id", request.OwnerID.String()),
				zap.String("requested_by", request.RequestedBy),
			)
			result := pipeline.Run(ctx, request.OwnerID)
			logger.Info("on-demand run finished",
				zap.String("request_id", request.RequestID.String()),
				zap.String("run_id", result.RunID.String()),
				zap.String("outcome", string(result.Outcome)),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	go func() {
		logger.Info("starting metrics server", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go runScheduler(ctx, cfg.Autoblog.ScheduleInterval, owners, pipeline, logger)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("runner error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down metrics server", zap.Error(err))
	}
}

// runScheduler sweeps all autoblog-enabled owners on a fixed interval. The
// pipeline's idempotency guard makes repeated sweeps within a day harmless,
// so the interval only controls how quickly a missed owner is retried.
func runScheduler(ctx context.Context, interval time.Duration, owners *postgres.OwnerRepository, pipeline *autoblog.Pipeline, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, owners, pipeline, logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, owners, pipeline, logger)
		}
	}
}

func sweep(ctx context.Context, owners *postgres.OwnerRepository, pipeline *autoblog.Pipeline, logger *zap.Logger) {
	enabled, err := owners.ListAutoblogEnabled(ctx)
	if err != nil {
		logger.Warn("failed to list autoblog-enabled owners", zap.Error(err))
		return
	}

	logger.Info("starting scheduled sweep", zap.Int("owners", len(enabled)))

	for _, owner := range enabled {
		if ctx.Err() != nil {
			return
		}
		result := pipeline.Run(ctx, owner.ID)
		logger.Info("scheduled run finished",
			zap.String("owner_id", owner.ID.String()),
			zap.String("run_id", result.RunID.String()),
			zap.String("outcome", string(result.Outcome)),
		)
	}
}
