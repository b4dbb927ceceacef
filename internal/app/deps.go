package app

import (
	"context"
	"time"

	"medtree/internal/ai"
	"medtree/internal/model"
	"medtree/internal/platform/logger"
)

type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
	CompleteJSON(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

type ExplanationCache interface {
	Get(ctx context.Context, kind, topic string) (string, bool, error)
	Set(ctx context.Context, kind, topic, text string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.Event) error
}

const publishTimeout = 2 * time.Second

// publishEvent is fire-and-forget from the caller's point of view; failures are logged.
func publishEvent(ctx context.Context, publisher EventPublisher, log *logger.Logger, event model.Event) {
	if publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := publisher.Publish(pubCtx, event); err != nil {
		log.Warn("publish event failed", "type", event.Type, "error", err)
	}
}
