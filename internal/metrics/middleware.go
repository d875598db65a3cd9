package metrics

import (
	"context"
	"time"

	"support-flow-be/pkg/llm"
)

// GenerationMiddleware records every generation call made through the chain.
func GenerationMiddleware(recorder Recorder) llm.Middleware {
	return func(next llm.Generator) llm.Generator {
		return llm.GeneratorFunc{
			ProviderName: next.Name(),
			Fn: func(ctx context.Context, req llm.Request) (llm.Completion, error) {
				start := time.Now()
				out, err := next.Generate(ctx, req)
				recorder.ObserveGeneration(next.Name(), req.Model, err == nil, out.Usage, time.Since(start))
				return out, err
			},
		}
	}
}
