// Package metrics records workflow, stage, flag and generation metrics.
package metrics

import (
	"time"

	"support-flow-be/pkg/llm"
)

// Recorder defines the interface for recording pipeline metrics.
type Recorder interface {
	// ObserveWorkflow records a finished workflow run.
	ObserveWorkflow(combo string, success bool, duration time.Duration)
	// ObserveStage records the duration of one stage execution.
	ObserveStage(stage string, duration time.Duration)
	// IncStageFallback counts a stage that served its deterministic fallback.
	IncStageFallback(stage string)
	// ObserveFlagEvaluation counts flag lookups by result (ok, default, error).
	ObserveFlagEvaluation(flag, result string)
	// ObserveGeneration records a generation backend call.
	ObserveGeneration(provider, model string, success bool, usage *llm.Usage, duration time.Duration)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) ObserveWorkflow(_ string, _ bool, _ time.Duration) {}

func (n *NoopRecorder) ObserveStage(_ string, _ time.Duration) {}

func (n *NoopRecorder) IncStageFallback(_ string) {}

func (n *NoopRecorder) ObserveFlagEvaluation(_, _ string) {}

func (n *NoopRecorder) ObserveGeneration(_, _ string, _ bool, _ *llm.Usage, _ time.Duration) {}
