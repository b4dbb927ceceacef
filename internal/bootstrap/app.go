package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"medtree/internal/ai"
	appsvc "medtree/internal/app"
	"medtree/internal/cache"
	"medtree/internal/config"
	"medtree/internal/observability"
	"medtree/internal/platform/logger"
	rabbitmqClient "medtree/internal/platform/rabbitmq"
	redisClient "medtree/internal/platform/redis"
	"medtree/internal/session"
)

type App struct {
	Config *config.Config
	Logger *logger.Logger
	LLM    *ai.OpenAICompatibleClient
	Redis  *redis.Client
	MQConn *amqp.Connection
	Events *rabbitmqClient.EventPublisher

	Sessions  session.Store
	Structure *appsvc.StructureService
	Explain   *appsvc.ExplainService
	Chat      *appsvc.ChatService

	TraceShutdown observability.ShutdownFunc
	StartedAt     time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, log)
}

// Build wires every component from an already validated config. Optional
// backends (Redis, RabbitMQ, tracing) are only dialed when configured.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    log,
		StartedAt: time.Now(),
	}

	shutdown, err := observability.InitTracing(ctx, log, cfg.Tracing, cfg.App.Name, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init tracing failed: %w", err)
	}
	a.TraceShutdown = shutdown

	if cfg.RedisRequired() {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	var publisher appsvc.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.EventsQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Events = rabbitmqClient.NewEventPublisher(a.MQConn, cfg.RabbitMQ.EventsQueue)
		publisher = a.Events
	}

	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		a.Sessions = session.NewRedisStore(a.Redis, cfg.Session.KeyPrefix)
	default:
		a.Sessions = session.NewMemoryStore()
	}

	var explanations appsvc.ExplanationCache
	if a.Redis != nil && cfg.Redis.ExplanationTTLSeconds > 0 {
		explanations = cache.NewExplanationCache(a.Redis, time.Duration(cfg.Redis.ExplanationTTLSeconds)*time.Second)
	}

	a.LLM = ai.NewOpenAICompatibleClient(ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	a.Structure = appsvc.NewStructureService(a.LLM, publisher, log.With("component", "structure"), appsvc.StructureOptions{
		MaxLength:    cfg.Chunker.MaxLength,
		ChunkTimeout: time.Duration(cfg.Chunker.ChunkTimeoutSeconds) * time.Second,
	})
	a.Explain = appsvc.NewExplainService(a.LLM, explanations, log.With("component", "explain"))
	a.Chat = appsvc.NewChatService(a.Sessions, a.LLM, publisher, log.With("component", "chat"))

	log.Info("app wired",
		"session_backend", cfg.Session.Backend,
		"model", cfg.LLM.Model,
		"explanation_cache", explanations != nil,
		"events", publisher != nil,
		"tracing", cfg.Tracing.Enabled,
	)
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.LLM != nil {
		a.LLM.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.TraceShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.TraceShutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
