package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtree/internal/ai"
	"medtree/internal/prompt"
)

func TestExplainService(t *testing.T) {
	t.Run("Should build the matching prompt per kind", func(t *testing.T) {
		llm := &fakeCompleter{respond: staticReply("Jantung seperti pompa air.")}
		svc := NewExplainService(llm, nil, nil)

		analogy, err := svc.Analogy(context.Background(), "Jantung")
		require.NoError(t, err)
		assert.Equal(t, "Jantung seperti pompa air.", analogy)

		_, err = svc.Clinical(context.Background(), "Jantung")
		require.NoError(t, err)

		require.Len(t, llm.calls, 2)
		assert.Equal(t, prompt.Analogy("Jantung"), llm.calls[0][0].Content)
		assert.Equal(t, prompt.Clinical("Jantung"), llm.calls[1][0].Content)
		assert.False(t, llm.jsonMode[0])
	})

	t.Run("Should require a topic", func(t *testing.T) {
		llm := &fakeCompleter{respond: staticReply("x")}
		svc := NewExplainService(llm, nil, nil)

		_, err := svc.Analogy(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = svc.Clinical(context.Background(), "")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Zero(t, llm.callCount())
	})

	t.Run("Should wrap model failures", func(t *testing.T) {
		llm := &fakeCompleter{respond: func(int, []ai.ChatMessage) (string, error) {
			return "", errors.New("timeout")
		}}
		svc := NewExplainService(llm, nil, nil)

		_, err := svc.Clinical(context.Background(), "Paru")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("Should serve repeats from the cache per kind", func(t *testing.T) {
		llm := &fakeCompleter{respond: staticReply("penjelasan")}
		svc := NewExplainService(llm, newFakeCache(), nil)
		ctx := context.Background()

		_, err := svc.Analogy(ctx, "Ginjal")
		require.NoError(t, err)
		_, err = svc.Analogy(ctx, "ginjal")
		require.NoError(t, err)
		_, err = svc.Clinical(ctx, "Ginjal")
		require.NoError(t, err)

		assert.Equal(t, 2, llm.callCount())
	})

	t.Run("Should fall through to the model when the cache errors", func(t *testing.T) {
		llm := &fakeCompleter{respond: staticReply("penjelasan")}
		cache := newFakeCache()
		cache.getErr = errors.New("redis down")
		svc := NewExplainService(llm, cache, nil)

		text, err := svc.Analogy(context.Background(), "Ginjal")
		require.NoError(t, err)
		assert.Equal(t, "penjelasan", text)
	})

	t.Run("Should relay the model text verbatim", func(t *testing.T) {
		reply := "  **Analogi:** jantung seperti pompa.\n\n1. Atrium\n2. Ventrikel\n"
		llm := &fakeCompleter{respond: staticReply(reply)}
		cache := newFakeCache()
		svc := NewExplainService(llm, cache, nil)

		text, err := svc.Analogy(context.Background(), "Jantung")
		require.NoError(t, err)
		assert.Equal(t, reply, text)

		cached, err := svc.Analogy(context.Background(), "Jantung")
		require.NoError(t, err)
		assert.Equal(t, reply, cached)
		assert.Equal(t, 1, llm.callCount())
	})

	t.Run("Should not cache a blank reply", func(t *testing.T) {
		llm := &fakeCompleter{respond: staticReply(" \n ")}
		cache := newFakeCache()
		svc := NewExplainService(llm, cache, nil)

		_, err := svc.Clinical(context.Background(), "Paru")
		require.NoError(t, err)
		assert.Empty(t, cache.entries)
	})
}
