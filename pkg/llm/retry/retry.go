// Package retry provides a bounded exponential retry middleware for generators.
package retry

import (
	"context"
	"errors"
	"time"

	"support-flow-be/pkg/llm"

	goretry "github.com/sethvargo/go-retry"
)

type Config struct {
	// Attempts is the total number of calls, including the first one.
	Attempts int
	MinDelay time.Duration
	MaxDelay time.Duration
}

func DefaultConfig() Config {
	return Config{Attempts: 3, MinDelay: time.Second, MaxDelay: 5 * time.Second}
}

// Middleware retries failed generations with exponential backoff starting at
// MinDelay and doubling up to MaxDelay. ErrUnavailable, context errors and
// permanent status errors (auth, bad request) are returned immediately.
func Middleware(cfg Config) llm.Middleware {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = DefaultConfig().MinDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}

	return func(next llm.Generator) llm.Generator {
		return llm.GeneratorFunc{
			ProviderName: next.Name(),
			Fn: func(ctx context.Context, req llm.Request) (llm.Completion, error) {
				backoff := goretry.NewExponential(cfg.MinDelay)
				backoff = goretry.WithCappedDuration(cfg.MaxDelay, backoff)
				backoff = goretry.WithMaxRetries(uint64(cfg.Attempts-1), backoff) // #nosec G115 -- clamped above

				var out llm.Completion
				err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
					var callErr error
					out, callErr = next.Generate(ctx, req)
					if callErr == nil {
						return nil
					}
					if isRetryable(ctx, callErr) {
						return goretry.RetryableError(callErr)
					}
					return callErr
				})
				return out, err
			},
		}
	}
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, llm.ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		llm.IsPermanent(err):
		return false
	}
	return true
}
