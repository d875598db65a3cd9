// Package gemini adapts the Google Gemini API to llm.Generator.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"support-flow-be/pkg/llm"

	"google.golang.org/genai"
)

type Provider struct {
	client *genai.Client
}

var _ llm.Generator = &Provider{}

func NewGeminiProvider(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	system, rest := req.SplitSystem()

	contents := make([]*genai.Content, 0, len(rest))
	for _, msg := range rest {
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "model" // Gemini uses "model" instead of "assistant"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	config := &genai.GenerateContentConfig{}
	if temp, ok := req.TemperatureParam(); ok {
		t := float32(temp)
		config.Temperature = &t
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	result, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			err = &llm.StatusError{Provider: p.Name(), StatusCode: apiErr.Code, Err: err}
		}
		return llm.Completion{}, fmt.Errorf("gemini generate content: %w", err)
	}

	completion := llm.Completion{Text: result.Text()}
	if result.UsageMetadata != nil {
		completion.Usage = &llm.Usage{
			PromptTokens:     int64(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	return completion, nil
}
