package model

import "time"

const (
	EventAnalysisCompleted = "analysis.completed"
	EventChatStarted       = "chat.started"
	EventChatEnded         = "chat.ended"
)

// Event is published to the optional event queue after notable actions.
type Event struct {
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id,omitempty"`
	Topic           string    `json:"topic,omitempty"`
	Filename        string    `json:"filename,omitempty"`
	OriginalLength  int       `json:"original_length,omitempty"`
	ChunksProcessed int       `json:"chunks_processed,omitempty"`
	ChunksFailed    int       `json:"chunks_failed,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
