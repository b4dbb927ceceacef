package app

import (
	"context"
	"strings"
	"sync"

	"medtree/internal/ai"
	"medtree/internal/model"
)

// fakeCompleter answers from a per-call script and records every request.
type fakeCompleter struct {
	mu       sync.Mutex
	calls    [][]ai.ChatMessage
	jsonMode []bool
	respond  func(call int, messages []ai.ChatMessage) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	return f.record(ctx, messages, false)
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	return f.record(ctx, messages, true)
}

func (f *fakeCompleter) record(_ context.Context, messages []ai.ChatMessage, jsonMode bool) (string, error) {
	f.mu.Lock()
	call := len(f.calls)
	copied := append([]ai.ChatMessage(nil), messages...)
	f.calls = append(f.calls, copied)
	f.jsonMode = append(f.jsonMode, jsonMode)
	f.mu.Unlock()
	return f.respond(call, messages)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func staticReply(text string) func(int, []ai.ChatMessage) (string, error) {
	return func(int, []ai.ChatMessage) (string, error) { return text, nil }
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (c *fakeCache) Get(_ context.Context, kind, topic string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	text, ok := c.entries[kind+"|"+strings.ToLower(topic)]
	return text, ok, nil
}

func (c *fakeCache) Set(_ context.Context, kind, topic, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[kind+"|"+strings.ToLower(topic)] = text
	return nil
}
