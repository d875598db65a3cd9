package stage

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"support-flow-be/internal/entity"
	"support-flow-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOk bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"prose wrapped", "Sure! Here you go:\n{\"a\":1}\nThanks", `{"a":1}`, true},
		{"nested", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`, true},
		{"greedy across two objects", `{"a":1} and {"b":2}`, `{"a":1} and {"b":2}`, true},
		{"multiline", "{\n  \"a\": 1\n}", "{\n  \"a\": 1\n}", true},
		{"no braces", "nothing here", "", false},
		{"only opening", "{ oops", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.text)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateBuildsRequest(t *testing.T) {
	var captured llm.Request
	gen := llm.GeneratorFunc{ProviderName: "fake", Fn: func(_ context.Context, req llm.Request) (llm.Completion, error) {
		captured = req
		return llm.Completion{Text: "out"}, nil
	}}
	temp := 0.4
	cfg := entity.PromptConfig{Model: "gpt-4", Temperature: &temp, MaxTokens: 200}

	text, err := Generate(context.Background(), gen, cfg, "sys", "usr")

	require.NoError(t, err)
	assert.Equal(t, "out", text)
	assert.Equal(t, "gpt-4", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, llm.RoleSystem, captured.Messages[0].Role)
	assert.Equal(t, "usr", captured.Messages[1].Content)
	got, ok := captured.TemperatureParam()
	assert.True(t, ok)
	assert.InDelta(t, 0.4, got, 1e-9)
	assert.Equal(t, 200, captured.MaxTokens)
}

func TestGenerateRecoversPanics(t *testing.T) {
	gen := llm.GeneratorFunc{ProviderName: "fake", Fn: func(context.Context, llm.Request) (llm.Completion, error) {
		panic("backend exploded")
	}}

	_, err := Generate(context.Background(), gen, entity.PromptConfig{Model: "m"}, "s", "u")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend exploded")
}

func TestGeneratePropagatesErrors(t *testing.T) {
	_, err := Generate(context.Background(), llm.Unavailable{}, entity.PromptConfig{Model: "m"}, "s", "u")
	assert.True(t, errors.Is(err, llm.ErrUnavailable))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("  abc ", 5))
	assert.Equal(t, "abcde...", Truncate("abcdefgh", 5))

	// "é" is two bytes and "日" three; a cut inside either backs off to the rune start.
	assert.Equal(t, "ab...", Truncate("abéd", 3))
	assert.Equal(t, "...", Truncate("日本語", 2))
	msg := "Zahlung fehlgeschlagen für Bestellung 日本"
	for limit := 0; limit <= len(msg); limit++ {
		assert.True(t, utf8.ValidString(Truncate(msg, limit)), "limit %d", limit)
	}
}
