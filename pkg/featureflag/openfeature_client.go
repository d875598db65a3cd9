package featureflag

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/open-feature/go-sdk/openfeature"
)

// OpenFeatureClient implements Client on top of the OpenFeature SDK. Each
// instance binds its provider to a private domain, so several clients can live
// in one process without sharing state.
type OpenFeatureClient struct {
	domain   string
	provider *DocumentProvider
	client   *openfeature.Client

	mu     sync.RWMutex
	ready  bool
	closed bool
}

var _ Client = (*OpenFeatureClient)(nil)

func NewOpenFeatureClient(provider *DocumentProvider) *OpenFeatureClient {
	domain := "support-flow-" + uuid.NewString()
	return &OpenFeatureClient{
		domain:   domain,
		provider: provider,
		client:   openfeature.NewClient(domain),
	}
}

// WaitForInitialization registers the provider and blocks until it is ready,
// its Init fails, or ctx ends.
func (c *OpenFeatureClient) WaitForInitialization(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return fmt.Errorf("%w: client closed", ErrNotInitialized)
	}

	done := make(chan error, 1)
	go func() {
		done <- openfeature.SetNamedProviderAndWait(c.domain, c.provider)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("initialize flag provider: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("initialize flag provider: %w", ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%w: client closed during initialization", ErrNotInitialized)
	}
	c.ready = true
	return nil
}

func (c *OpenFeatureClient) usable() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ready || c.closed {
		return ErrNotInitialized
	}
	return nil
}

func toOpenFeature(evalCtx EvaluationContext) openfeature.EvaluationContext {
	return openfeature.NewEvaluationContext(evalCtx.UserID(), evalCtx.toMap())
}

func (c *OpenFeatureClient) StringVariation(ctx context.Context, flagKey string, evalCtx EvaluationContext, defaultValue string) (string, error) {
	if err := c.usable(); err != nil {
		return defaultValue, err
	}
	details, err := c.client.StringValueDetails(ctx, flagKey, defaultValue, toOpenFeature(evalCtx))
	if err != nil {
		return defaultValue, classify(flagKey, details.ErrorCode, err)
	}
	return details.Value, nil
}

func (c *OpenFeatureClient) JSONVariation(ctx context.Context, flagKey string, evalCtx EvaluationContext, defaultValue interface{}) (interface{}, error) {
	if err := c.usable(); err != nil {
		return defaultValue, err
	}
	details, err := c.client.ObjectValueDetails(ctx, flagKey, defaultValue, toOpenFeature(evalCtx))
	if err != nil {
		return defaultValue, classify(flagKey, details.ErrorCode, err)
	}
	return details.Value, nil
}

// classify maps OpenFeature error codes onto this package's sentinels.
func classify(flagKey string, code openfeature.ErrorCode, err error) error {
	switch code {
	case openfeature.FlagNotFoundCode:
		return fmt.Errorf("evaluate %s: %w: %v", flagKey, ErrFlagNotFound, err)
	case openfeature.TypeMismatchCode:
		return fmt.Errorf("evaluate %s: %w: %v", flagKey, ErrTypeMismatch, err)
	case openfeature.ProviderNotReadyCode:
		return fmt.Errorf("evaluate %s: %w: %v", flagKey, ErrNotInitialized, err)
	default:
		return fmt.Errorf("evaluate %s: %w", flagKey, err)
	}
}

// Close stops the provider. Calling it again, or before initialization, is a no-op.
func (c *OpenFeatureClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.ready = false
	c.mu.Unlock()

	c.provider.Shutdown()
	return nil
}
