package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"support-flow-be/pkg/llm"

	"github.com/ollama/ollama/api"
)

const DefaultBaseURL = "http://localhost:11434"

type OllamaProvider struct {
	client  *api.Client
	baseURL string
}

// Ensure OllamaProvider implements Generator
var _ llm.Generator = &OllamaProvider{}

func NewOllamaProvider(baseURL string) *OllamaProvider {
	parsed, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		parsed, _ = url.Parse(DefaultBaseURL)
	}
	return &OllamaProvider{
		client:  api.NewClient(parsed, &http.Client{Timeout: 120 * time.Second}),
		baseURL: parsed.String(),
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

func (o *OllamaProvider) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	messages := make([]api.Message, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = api.Message{Role: msg.Role, Content: msg.Content}
	}

	options := map[string]any{}
	if temp, ok := req.TemperatureParam(); ok {
		options["temperature"] = temp
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.Completion{}, fmt.Errorf("ollama chat at %s: %w", o.baseURL, err)
	}

	return llm.Completion{
		Text: response.Message.Content,
		Usage: &llm.Usage{
			PromptTokens:     int64(response.PromptEvalCount),
			CompletionTokens: int64(response.EvalCount),
		},
	}, nil
}
