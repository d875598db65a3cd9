// Package stage holds the contract shared by the pipeline stages.
package stage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"support-flow-be/internal/entity"
	"support-flow-be/pkg/llm"
	"support-flow-be/pkg/outcome"
)

const (
	NameIntent    = "intent"
	NameRetrieval = "retrieval"
	NameResponse  = "response"
)

// Processor is one pipeline stage. Execute never panics and, for every
// failure it knows how to default, returns a successful Outcome carrying the
// fallback value.
type Processor[In, Out any] interface {
	Execute(ctx context.Context, input In, config entity.PromptConfig) outcome.Outcome[Out]
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc[In, Out any] func(ctx context.Context, input In, config entity.PromptConfig) outcome.Outcome[Out]

func (f ProcessorFunc[In, Out]) Execute(ctx context.Context, input In, config entity.PromptConfig) outcome.Outcome[Out] {
	return f(ctx, input, config)
}

// firstObject is greedy: it spans from the first '{' to the last '}'. Output
// holding several objects or stray braces yields text that will not parse,
// and callers fall back.
var firstObject = regexp.MustCompile(`\{[\s\S]*\}`)

// ExtractJSONObject returns the brace-delimited span of text, if any.
func ExtractJSONObject(text string) (string, bool) {
	match := firstObject.FindString(text)
	return match, match != ""
}

// Generate sends a system + user prompt pair using the stage config.
// Panics raised by the backend are returned as errors.
func Generate(ctx context.Context, gen llm.Generator, cfg entity.PromptConfig, system, user string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
		}
	}()

	opts := []llm.Option{}
	if cfg.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.MaxTokens))
	}

	req := llm.NewRequest(cfg.Model, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, opts...)

	out, err := gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// Truncate shortens s to at most limit bytes for log output, cutting on a rune
// boundary so the result stays valid UTF-8.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := max(limit, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
