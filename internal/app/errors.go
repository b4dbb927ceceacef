package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyDocument   = errors.New("document contains no extractable text")
	ErrSessionNotFound = errors.New("session not found")
	ErrUpstream        = errors.New("llm request failed")
)

// ChunkError reports why one chunk produced no tree. It never aborts an upload.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

type ChunkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func upstreamError(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
