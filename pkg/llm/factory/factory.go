package factory

import (
	"context"

	"support-flow-be/internal/config"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/llm"
	"support-flow-be/pkg/llm/anthropic"
	"support-flow-be/pkg/llm/gemini"
	"support-flow-be/pkg/llm/ollama"
	"support-flow-be/pkg/llm/openai"
	"support-flow-be/pkg/llm/retry"
)

// NewGenerator builds the configured backend wrapped in metrics and retry
// middleware. Missing credentials degrade to llm.Unavailable so the stages
// serve their fallbacks instead of the process refusing to start.
func NewGenerator(ctx context.Context, cfg config.LLMConfig, log logger.ILogger, recorder metrics.Recorder) llm.Generator {
	base := newBase(ctx, cfg, log)
	if _, none := base.(llm.Unavailable); none {
		return base
	}

	log.Info("LLMFactory", "Generation backend ready", map[string]interface{}{
		"provider": base.Name(),
		"model":    cfg.Model,
		"attempts": cfg.RetryAttempts,
	})

	return llm.Chain(base,
		metrics.GenerationMiddleware(recorder),
		retry.Middleware(retry.Config{
			Attempts: cfg.RetryAttempts,
			MinDelay: cfg.RetryMinDelay,
			MaxDelay: cfg.RetryMaxDelay,
		}),
	)
}

func newBase(ctx context.Context, cfg config.LLMConfig, log logger.ILogger) llm.Generator {
	missing := func(key string) llm.Generator {
		log.Warn("LLMFactory", "Credentials missing, generation disabled", map[string]interface{}{
			"provider": cfg.Provider,
			"missing":  key,
		})
		return llm.Unavailable{}
	}

	switch cfg.Provider {
	case "azure":
		if cfg.AzureResourceName == "" || cfg.AzureAPIKey == "" {
			return missing("AZURE_RESOURCE_NAME/AZURE_API_KEY")
		}
		return openai.NewAzureProvider(cfg.AzureResourceName, cfg.AzureAPIKey, cfg.AzureAPIVersion)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return missing("OPENAI_API_KEY")
		}
		return openai.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return missing("ANTHROPIC_API_KEY")
		}
		return anthropic.NewAnthropicProvider(cfg.AnthropicAPIKey)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return missing("GEMINI_API_KEY")
		}
		p, err := gemini.NewGeminiProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn("LLMFactory", "Gemini client init failed, generation disabled", map[string]interface{}{"error": err.Error()})
			return llm.Unavailable{}
		}
		return p
	case "ollama":
		return ollama.NewOllamaProvider(cfg.OllamaBaseURL)
	case "none":
		log.Info("LLMFactory", "Generation disabled by configuration", nil)
		return llm.Unavailable{}
	default:
		log.Warn("LLMFactory", "Unsupported LLM provider, generation disabled", map[string]interface{}{"provider": cfg.Provider})
		return llm.Unavailable{}
	}
}
