// Package openai adapts the OpenAI chat completions API, including Azure
// OpenAI deployments, to llm.Generator.
package openai

import (
	"context"
	"errors"
	"fmt"

	"support-flow-be/pkg/llm"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

type Provider struct {
	client openai.Client
	name   string
}

var _ llm.Generator = &Provider{}

// NewOpenAIProvider talks to api.openai.com, or to any OpenAI-compatible
// endpoint when baseURL is set.
func NewOpenAIProvider(apiKey, baseURL string) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{client: openai.NewClient(opts...), name: "openai"}
}

// NewAzureProvider targets https://<resource>.openai.azure.com. The request
// model is used as the deployment name.
func NewAzureProvider(resourceName, apiKey, apiVersion string) *Provider {
	endpoint := fmt.Sprintf("https://%s.openai.azure.com", resourceName)
	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
	)
	return &Provider{client: client, name: "azure"}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if temp, ok := req.TemperatureParam(); ok {
		params.Temperature = openai.Float(temp)
	}
	if req.MaxTokens > 0 {
		if llm.IsReasoningModel(req.Model) {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
		} else {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			err = &llm.StatusError{Provider: p.name, StatusCode: apiErr.StatusCode, Err: err}
		}
		return llm.Completion{}, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.Completion{}, errors.New(p.name + ": empty completion")
	}

	return llm.Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
