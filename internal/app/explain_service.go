package app

import (
	"context"
	"strings"

	"medtree/internal/ai"
	"medtree/internal/model"
	"medtree/internal/platform/logger"
	"medtree/internal/prompt"
)

const (
	ExplanationAnalogy  = "analogy"
	ExplanationClinical = "clinical"
)

type ExplainService struct {
	llm   Completer
	cache ExplanationCache
	log   *logger.Logger
}

// NewExplainService builds the per-node assistive features. cache may be nil.
func NewExplainService(llm Completer, cache ExplanationCache, log *logger.Logger) *ExplainService {
	if log == nil {
		log = logger.Nop()
	}
	return &ExplainService{llm: llm, cache: cache, log: log}
}

func (s *ExplainService) Analogy(ctx context.Context, topic string) (string, error) {
	return s.explain(ctx, ExplanationAnalogy, topic, prompt.Analogy)
}

func (s *ExplainService) Clinical(ctx context.Context, topic string) (string, error) {
	return s.explain(ctx, ExplanationClinical, topic, prompt.Clinical)
}

func (s *ExplainService) explain(ctx context.Context, kind, topic string, build func(string) string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrInvalidInput
	}

	if s.cache != nil {
		text, hit, err := s.cache.Get(ctx, kind, topic)
		switch {
		case err != nil:
			s.log.Warn("explanation cache read failed", "kind", kind, "error", err)
		case hit:
			return text, nil
		}
	}

	text, err := s.llm.Complete(ctx, []ai.ChatMessage{
		{Role: model.RoleUser, Content: build(topic)},
	})
	if err != nil {
		return "", upstreamError(err)
	}

	if s.cache != nil && strings.TrimSpace(text) != "" {
		if err := s.cache.Set(ctx, kind, topic, text); err != nil {
			s.log.Warn("explanation cache write failed", "kind", kind, "error", err)
		}
	}
	return text, nil
}
