package model

import "time"

// ChatSession is the conversational state of one topic-scoped chat.
type ChatSession struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	History   []Message `json:"history"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy whose history can be appended to without touching s.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	out := *s
	out.History = append([]Message(nil), s.History...)
	return &out
}
