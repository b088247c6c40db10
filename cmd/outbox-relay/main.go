package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/config"
	"github.com/lightnindragon/listgenius/pkg/logging"
	"github.com/lightnindragon/listgenius/pkg/outbox"
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

	writer := newEventWriter(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.EventTopic)
	defer writer.Close()

	dlqWriter := newEventWriter(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.EventDLQTopic)
	defer dlqWriter.Close()

	relay := outbox.NewRelay(
		postgres.NewOutboxRepository(store.DB()),
		writer,
		dlqWriter,
		logger,
		cfg.Autoblog.OutboxPollInterval,
		cfg.Autoblog.OutboxBatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("outbox relay failed", zap.Error(err))
	}
}

func newEventWriter(brokers []string, clientID, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Transport: &kafka.Transport{
			ClientID: clientID,
		},
	}
}
