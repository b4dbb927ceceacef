package session

import (
	"context"
	"errors"

	"medtree/internal/model"
)

var ErrNotFound = errors.New("chat session not found")

// Store keeps chat sessions by id. Put replaces an existing session with the
// same id. Implementations are safe for concurrent use; callers that need a
// read-modify-write cycle on one session serialize it with KeyedMutex.
type Store interface {
	Get(ctx context.Context, id string) (*model.ChatSession, error)
	Put(ctx context.Context, s *model.ChatSession) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
