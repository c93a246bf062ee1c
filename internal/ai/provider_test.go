package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMentions(t *testing.T) {
	names := []string{"wayneAI", "consultingAI"}

	t.Run("extracts a whitelisted mention and strips it", func(t *testing.T) {
		mentioned, query := ExtractMentions("@wayneAI what is a goroutine?", names)

		assert.Equal(t, []string{"wayneai"}, mentioned)
		assert.Equal(t, "what is a goroutine?", query)
	})

	t.Run("ignores unregistered mentions", func(t *testing.T) {
		mentioned, query := ExtractMentions("hey @nobody, are you there?", names)

		assert.Empty(t, mentioned)
		assert.Equal(t, "hey @nobody, are you there?", query)
	})

	t.Run("returns distinct names in order of first appearance", func(t *testing.T) {
		mentioned, _ := ExtractMentions("@consultingAI @wayneAI @consultingAI compare notes", names)

		assert.Equal(t, []string{"consultingai", "wayneai"}, mentioned)
	})

	t.Run("matching is case insensitive", func(t *testing.T) {
		mentioned, _ := ExtractMentions("@WAYNEAI hello", names)

		assert.Equal(t, []string{"wayneai"}, mentioned)
	})

	t.Run("collapses whitespace left by stripping", func(t *testing.T) {
		_, query := ExtractMentions("explain @wayneAI   this   code", names)

		assert.Equal(t, "explain this code", query)
	})

	t.Run("no mentions in plain text", func(t *testing.T) {
		mentioned, query := ExtractMentions("just a regular message", names)

		assert.Empty(t, mentioned)
		assert.Equal(t, "just a regular message", query)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("lookup is case and whitespace insensitive", func(t *testing.T) {
		r := NewRegistry()
		p := NewScriptedProvider("hello")
		r.Register(" WayneAI ", p)

		got, err := r.Get("wayneai")
		require.NoError(t, err)
		assert.Same(t, p, got)
	})

	t.Run("unknown name errors", func(t *testing.T) {
		r := NewRegistry()

		_, err := r.Get("ghost")
		assert.Error(t, err)
	})

	t.Run("names lists registered providers", func(t *testing.T) {
		r := NewRegistry()
		r.Register("a", NewScriptedProvider("x"))
		r.Register("b", NewScriptedProvider("y"))

		assert.ElementsMatch(t, []string{"a", "b"}, r.Names())
	})
}

func TestScriptedProvider(t *testing.T) {
	t.Run("replays the response word by word", func(t *testing.T) {
		p := NewScriptedProvider("one two three")

		deltas, errs := p.Stream(context.Background(), "ignored")

		var sb strings.Builder
		count := 0
		for d := range deltas {
			sb.WriteString(d)
			count++
		}

		assert.Equal(t, "one two three", sb.String())
		assert.Equal(t, 3, count)
		assert.NoError(t, <-errs)
	})

	t.Run("cancelled context surfaces an error", func(t *testing.T) {
		p := NewScriptedProvider("one two three four five")

		ctx, cancel := context.WithCancel(context.Background())
		deltas, errs := p.Stream(ctx, "ignored")

		<-deltas
		cancel()

		assert.ErrorIs(t, <-errs, context.Canceled)
	})
}
