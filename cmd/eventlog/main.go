// Command eventlog tails the medtree domain event queue and writes each
// event as a structured log line.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"medtree/internal/config"
	"medtree/internal/model"
	"medtree/internal/platform/logger"
	rabbitmqClient "medtree/internal/platform/rabbitmq"
	"medtree/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if cfg.RabbitMQ.URL == "" {
		log.Fatal("RABBITMQ_URL is required")
	}

	zl, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.EventsQueue)
	if err != nil {
		zl.Fatal("connect rabbitmq failed", "error", err)
	}
	defer conn.Close()

	consumer := worker.NewEventConsumer(conn, cfg.RabbitMQ.EventsQueue, func(_ context.Context, e model.Event) error {
		zl.Info("event",
			"type", e.Type,
			"session_id", e.SessionID,
			"topic", e.Topic,
			"filename", e.Filename,
			"original_length", e.OriginalLength,
			"chunks_processed", e.ChunksProcessed,
			"chunks_failed", e.ChunksFailed,
			"occurred_at", e.OccurredAt,
		)
		return nil
	}, zl)
	if err := consumer.Start(ctx); err != nil {
		zl.Fatal("start event consumer failed", "error", err)
	}
	zl.Info("tailing events", "queue", cfg.RabbitMQ.EventsQueue)

	<-ctx.Done()
	consumer.Close()
}
