// Package featureflag evaluates feature flags for the support pipeline. It
// exposes a small Client capability backed by an OpenFeature provider that
// serves a flag document loaded from a file or over HTTP.
package featureflag

import (
	"context"
	"errors"
)

var (
	// ErrNotInitialized is returned by lookups made before initialization or after Close.
	ErrNotInitialized = errors.New("featureflag: client not initialized")
	// ErrFlagNotFound is returned when the document does not define the flag.
	ErrFlagNotFound = errors.New("featureflag: flag not found")
	// ErrTypeMismatch is returned when a flag value has an unexpected type.
	ErrTypeMismatch = errors.New("featureflag: type mismatch")
)

// Client is the flag-evaluation capability consumed by the pipeline. Every
// variation call returns defaultValue alongside a non-nil error on failure.
type Client interface {
	WaitForInitialization(ctx context.Context) error
	StringVariation(ctx context.Context, flagKey string, evalCtx EvaluationContext, defaultValue string) (string, error)
	JSONVariation(ctx context.Context, flagKey string, evalCtx EvaluationContext, defaultValue interface{}) (interface{}, error)
	Close() error
}
