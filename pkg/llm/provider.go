package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnavailable is returned when no generation backend is configured or reachable.
var ErrUnavailable = errors.New("llm: generation backend unavailable")

// StatusError carries the HTTP status a backend answered with.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Permanent reports whether repeating the request cannot succeed: any 4xx
// except 408 and 429.
func (e *StatusError) Permanent() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsPermanent reports whether err wraps a StatusError that will not succeed on retry.
func IsPermanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Permanent()
}

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Request)

func WithTemperature(temp float64) Option {
	return func(r *Request) {
		r.Temperature = &temp
	}
}

func WithMaxTokens(n int) Option {
	return func(r *Request) {
		r.MaxTokens = n
	}
}

// Request is a single generation call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

func NewRequest(model string, messages []Message, opts ...Option) Request {
	req := Request{Model: model, Messages: messages}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// reasoningModel matches model ids whose backends reject a temperature parameter.
var reasoningModel = regexp.MustCompile(`(?i)o1|o3|gpt-5`)

func IsReasoningModel(model string) bool {
	return reasoningModel.MatchString(model)
}

// TemperatureParam reports the temperature to send, if any. Reasoning models
// never receive one.
func (r Request) TemperatureParam() (float64, bool) {
	if r.Temperature == nil || IsReasoningModel(r.Model) {
		return 0, false
	}
	return *r.Temperature, true
}

// SplitSystem separates system messages from the conversation, for backends
// that take the system prompt as a dedicated field.
func (r Request) SplitSystem() (system string, rest []Message) {
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

type Completion struct {
	Text  string
	Usage *Usage
}

// Generator defines the contract for any text-generation backend
type Generator interface {
	Generate(ctx context.Context, req Request) (Completion, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// Middleware wraps a Generator with additional behavior.
type Middleware func(next Generator) Generator

// Chain applies middlewares so that the first one is outermost.
func Chain(base Generator, middlewares ...Middleware) Generator {
	g := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		g = middlewares[i](g)
	}
	return g
}

// GeneratorFunc adapts a plain function, mostly for middleware and tests.
type GeneratorFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, req Request) (Completion, error)
}

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Completion, error) {
	return f.Fn(ctx, req)
}

func (f GeneratorFunc) Name() string { return f.ProviderName }

// Unavailable always fails with ErrUnavailable. Stages fall back on every call.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, Request) (Completion, error) {
	return Completion{}, ErrUnavailable
}

func (Unavailable) Name() string { return "none" }
