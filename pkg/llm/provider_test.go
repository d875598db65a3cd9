package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReasoningModel(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"o1-preview", true},
		{"O3-mini", true},
		{"gpt-5", true},
		{"GPT-5-turbo", true},
		{"gpt-4", false},
		{"gpt-4o", false},
		{"claude-3-5-sonnet", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReasoningModel(tt.model))
		})
	}
}

func TestTemperatureParam(t *testing.T) {
	req := NewRequest("gpt-4", nil, WithTemperature(0.3))
	temp, ok := req.TemperatureParam()
	assert.True(t, ok)
	assert.InDelta(t, 0.3, temp, 1e-9)

	req = NewRequest("o3-mini", nil, WithTemperature(0.3))
	_, ok = req.TemperatureParam()
	assert.False(t, ok, "reasoning models never receive a temperature")

	req = NewRequest("gpt-4", nil)
	_, ok = req.TemperatureParam()
	assert.False(t, ok)
}

func TestSplitSystem(t *testing.T) {
	req := NewRequest("m", []Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "b"},
	})
	system, rest := req.SplitSystem()
	assert.Equal(t, "a\n\nb", system)
	require.Len(t, rest, 1)
	assert.Equal(t, "hi", rest[0].Content)
}

func TestChainOrder(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next Generator) Generator {
			return GeneratorFunc{ProviderName: next.Name(), Fn: func(ctx context.Context, req Request) (Completion, error) {
				calls = append(calls, name)
				return next.Generate(ctx, req)
			}}
		}
	}
	base := GeneratorFunc{ProviderName: "base", Fn: func(context.Context, Request) (Completion, error) {
		calls = append(calls, "base")
		return Completion{Text: "ok"}, nil
	}}

	g := Chain(base, mw("outer"), mw("inner"))
	out, err := g.Generate(context.Background(), Request{})

	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
	assert.Equal(t, []string{"outer", "inner", "base"}, calls)
	assert.Equal(t, "base", g.Name())
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{400, true},
		{401, true},
		{403, true},
		{408, false},
		{429, false},
		{500, false},
		{529, false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", &StatusError{Provider: "p", StatusCode: tt.code, Err: errors.New("x")})
		assert.Equal(t, tt.want, IsPermanent(err), "status %d", tt.code)
	}
	assert.False(t, IsPermanent(errors.New("plain")))
}
