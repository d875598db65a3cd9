package intent

import (
	"context"
	"errors"
	"testing"

	"support-flow-be/internal/entity"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	metrics.NoopRecorder
	fallbacks map[string]int
}

func (c *countingRecorder) IncStageFallback(stage string) { c.fallbacks[stage]++ }

func replying(text string) llm.Generator {
	return llm.GeneratorFunc{ProviderName: "fake", Fn: func(context.Context, llm.Request) (llm.Completion, error) {
		return llm.Completion{Text: text}, nil
	}}
}

func config(temp float64) entity.PromptConfig {
	return entity.PromptConfig{Model: "gpt-4", Temperature: &temp}
}

var inquiry = entity.Inquiry{Id: "INQ-001", UserId: "user-123", Type: entity.InquiryTypeCritical, Message: "API down, 500 errors"}

func TestFallbackByTemperature(t *testing.T) {
	tests := []struct {
		temp float64
		want entity.IntentResult
	}{
		{0.0, entity.IntentResult{Category: "CRITICAL", Urgency: "high", Confidence: 0.95}},
		{0.3, entity.IntentResult{Category: "CRITICAL", Urgency: "high", Confidence: 0.95}},
		{0.59, entity.IntentResult{Category: "CRITICAL", Urgency: "high", Confidence: 0.95}},
		{0.6, entity.IntentResult{Category: "FEATURE", Urgency: "medium", Confidence: 0.85}},
		{0.7, entity.IntentResult{Category: "FEATURE", Urgency: "medium", Confidence: 0.85}},
		{1.0, entity.IntentResult{Category: "FEATURE", Urgency: "medium", Confidence: 0.85}},
	}

	for _, tt := range tests {
		rec := &countingRecorder{fallbacks: map[string]int{}}
		c := NewClassifier(llm.Unavailable{}, logger.NewNopLogger(), rec)

		out := c.Execute(context.Background(), inquiry, config(tt.temp))

		require.True(t, out.Success())
		assert.Equal(t, tt.want, out.Value(), "temperature %v", tt.temp)
		assert.Equal(t, 1, rec.fallbacks["intent"])
	}
}

func TestExecuteParsesClassification(t *testing.T) {
	c := NewClassifier(replying("Here:\n{\"category\":\"INTEGRATION\",\"urgency\":\"low\",\"confidence\":0.66}"), logger.NewNopLogger(), metrics.Nop())

	out := c.Execute(context.Background(), inquiry, config(0.7))

	require.True(t, out.Success())
	assert.Equal(t, entity.IntentResult{Category: "INTEGRATION", Urgency: "low", Confidence: 0.66}, out.Value())
}

func TestExecuteUsesConfiguredSystemPrompt(t *testing.T) {
	var system string
	gen := llm.GeneratorFunc{ProviderName: "fake", Fn: func(_ context.Context, req llm.Request) (llm.Completion, error) {
		system, _ = req.SplitSystem()
		return llm.Completion{Text: `{"category":"QUICK"}`}, nil
	}}
	cfg := config(0.5)
	cfg.SystemPrompt = "Only say QUICK"

	NewClassifier(gen, logger.NewNopLogger(), metrics.Nop()).Execute(context.Background(), inquiry, cfg)

	assert.Equal(t, "Only say QUICK", system)
}

func TestExecuteFallsBackOnBrokenJSON(t *testing.T) {
	c := NewClassifier(replying(`{"category": CRITICAL`+"}"), logger.NewNopLogger(), metrics.Nop())

	out := c.Execute(context.Background(), inquiry, config(0.2))

	assert.Equal(t, entity.IntentResult{Category: "CRITICAL", Urgency: "high", Confidence: 0.95}, out.Value())
}

func TestExecuteRecoversFromPanics(t *testing.T) {
	gen := llm.GeneratorFunc{ProviderName: "fake", Fn: func(context.Context, llm.Request) (llm.Completion, error) {
		panic("boom")
	}}

	out := NewClassifier(gen, logger.NewNopLogger(), metrics.Nop()).Execute(context.Background(), inquiry, config(0.9))

	require.True(t, out.Success())
	assert.Equal(t, "FEATURE", out.Value().Category)
}

func TestExecuteGenerationError(t *testing.T) {
	gen := llm.GeneratorFunc{ProviderName: "fake", Fn: func(context.Context, llm.Request) (llm.Completion, error) {
		return llm.Completion{}, errors.New("429 too many requests")
	}}

	out := NewClassifier(gen, logger.NewNopLogger(), metrics.Nop()).Execute(context.Background(), inquiry, config(0.1))

	assert.Equal(t, "CRITICAL", out.Value().Category)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    entity.IntentResult
		wantErr bool
	}{
		{
			name: "no json",
			text: "I think this is a feature request.",
			want: entity.IntentResult{Category: "FEATURE", Urgency: "medium", Confidence: 0.75},
		},
		{
			name: "missing fields",
			text: `{"category":"CRITICAL"}`,
			want: entity.IntentResult{Category: "CRITICAL", Urgency: "medium", Confidence: 0.85},
		},
		{
			name: "empty strings and zero confidence",
			text: `{"category":"","urgency":"","confidence":0}`,
			want: entity.IntentResult{Category: "FEATURE", Urgency: "medium", Confidence: 0.85},
		},
		{
			name: "wrong types",
			text: `{"category":7,"urgency":true,"confidence":"high"}`,
			want: entity.IntentResult{Category: "FEATURE", Urgency: "medium", Confidence: 0.85},
		},
		{
			name: "confidence clamped high",
			text: `{"category":"QUICK","urgency":"low","confidence":7}`,
			want: entity.IntentResult{Category: "QUICK", Urgency: "low", Confidence: 1},
		},
		{
			name: "confidence clamped low",
			text: `{"category":"QUICK","urgency":"low","confidence":-0.2}`,
			want: entity.IntentResult{Category: "QUICK", Urgency: "low", Confidence: 0},
		},
		{
			name:    "two objects",
			text:    `{"category":"QUICK"} {"category":"CRITICAL"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
