package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"medtree/internal/ai"
	"medtree/internal/model"
	"medtree/internal/platform/logger"
	"medtree/internal/prompt"
	"medtree/internal/session"
)

type ChatService struct {
	store     session.Store
	locks     *session.KeyedMutex
	llmClient Completer
	events    EventPublisher
	log       *logger.Logger
	now       func() time.Time
	newID     func() (string, error)
}

type StartChatInput struct {
	Topic     string
	SessionID string
}

type StartChatResult struct {
	SessionID string `json:"sessionId"`
	Topic     string `json:"topic"`
	Message   string `json:"message"`
}

type SendMessageInput struct {
	SessionID string
	Message   string
}

type SendMessageResult struct {
	Response string `json:"response"`
	Topic    string `json:"topic"`
}

func NewChatService(store session.Store, llmClient Completer, events EventPublisher, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatService{
		store:     store,
		locks:     session.NewKeyedMutex(),
		llmClient: llmClient,
		events:    events,
		log:       log,
		now:       time.Now,
		newID:     newSessionID,
	}
}

// StartChat seeds a topic-scoped session without calling the model. An
// existing session with the same id is replaced.
func (s *ChatService) StartChat(ctx context.Context, input StartChatInput) (*StartChatResult, error) {
	topic := strings.TrimSpace(input.Topic)
	if topic == "" {
		return nil, ErrInvalidInput
	}

	id := strings.TrimSpace(input.SessionID)
	if id == "" {
		generated, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate session id failed: %w", err)
		}
		id = generated
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now().UTC()
	greeting := prompt.ChatGreeting(topic)
	chat := &model.ChatSession{
		ID:    id,
		Topic: topic,
		History: []model.Message{
			{Role: model.RoleUser, Content: prompt.ChatSystem(topic), CreatedAt: now},
			{Role: model.RoleAssistant, Content: greeting, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, chat); err != nil {
		return nil, fmt.Errorf("store chat session failed: %w", err)
	}

	publishEvent(ctx, s.events, s.log, model.Event{
		Type:       model.EventChatStarted,
		SessionID:  id,
		Topic:      topic,
		OccurredAt: now,
	})

	return &StartChatResult{SessionID: id, Topic: topic, Message: greeting}, nil
}

// SendMessage holds the session lock across read, model call and write so
// that turns on one session never interleave.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	id := strings.TrimSpace(input.SessionID)
	content := strings.TrimSpace(input.Message)
	if id == "" || content == "" {
		return nil, ErrInvalidInput
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	chat, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load chat session failed: %w", err)
	}

	reply, err := s.llmClient.Complete(ctx, buildPromptMessages(chat.History, content))
	if err != nil {
		return nil, upstreamError(err)
	}

	now := s.now().UTC()
	chat.History = append(chat.History,
		model.Message{Role: model.RoleUser, Content: content, CreatedAt: now},
		model.Message{Role: model.RoleAssistant, Content: reply, CreatedAt: now},
	)
	chat.UpdatedAt = now
	if err := s.store.Put(ctx, chat); err != nil {
		return nil, fmt.Errorf("store chat session failed: %w", err)
	}

	return &SendMessageResult{Response: reply, Topic: chat.Topic}, nil
}

func (s *ChatService) EndChat(ctx context.Context, sessionID string) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return ErrInvalidInput
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete chat session failed: %w", err)
	}

	publishEvent(ctx, s.events, s.log, model.Event{
		Type:       model.EventChatEnded,
		SessionID:  id,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

func (s *ChatService) ActiveSessions(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func buildPromptMessages(history []model.Message, currentUserInput string) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(history)+1)
	for _, item := range history {
		role := item.Role
		if role == "" {
			role = model.RoleUser
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: item.Content})
	}
	return append(messages, ai.ChatMessage{Role: model.RoleUser, Content: currentUserInput})
}

func newSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
