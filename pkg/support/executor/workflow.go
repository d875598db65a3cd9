// Package executor runs the three support stages for one inquiry.
package executor

import (
	"context"
	"fmt"
	"time"

	"support-flow-be/internal/entity"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/featureflag"
	"support-flow-be/pkg/outcome"
	"support-flow-be/pkg/support/combo"
	"support-flow-be/pkg/support/response"
	"support-flow-be/pkg/support/retrieval"
	"support-flow-be/pkg/support/stage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	module     = "Executor"
	tracerName = "support-flow"
)

// FlagResolver is the part of the flag adapter the executor needs. Both calls
// absorb evaluation failures and only return an error when the adapter is
// unusable.
type FlagResolver interface {
	ResolveCombo(ctx context.Context, evalCtx featureflag.EvaluationContext) (string, error)
	ResolveStageConfig(ctx context.Context, flagKey string, evalCtx featureflag.EvaluationContext) (entity.PromptConfig, error)
}

// StageKeys names the flag consulted for each stage.
type StageKeys struct {
	Intent    string
	Retrieval string
	Response  string
}

type Stages struct {
	Intent    stage.Processor[entity.Inquiry, entity.IntentResult]
	Retrieval stage.Processor[retrieval.Input, entity.RetrievalResult]
	Response  stage.Processor[response.Input, entity.ResponseResult]
}

// WorkflowExecutor orchestrates the three-phase support pipeline
// Phase 1: Intent → Phase 2: Retrieval → Phase 3: Response
type WorkflowExecutor struct {
	flags    FlagResolver
	keys     StageKeys
	stages   Stages
	logger   logger.ILogger
	recorder metrics.Recorder
	tracer   trace.Tracer
}

func NewWorkflowExecutor(flags FlagResolver, keys StageKeys, stages Stages, log logger.ILogger, recorder metrics.Recorder) *WorkflowExecutor {
	return &WorkflowExecutor{
		flags:    flags,
		keys:     keys,
		stages:   stages,
		logger:   log,
		recorder: recorder,
		tracer:   otel.Tracer(tracerName),
	}
}

// Execute runs the pipeline. It never panics; any fault outside the stages
// becomes a failed Outcome carrying the inquiry id.
func (e *WorkflowExecutor) Execute(ctx context.Context, inquiry entity.Inquiry) (result outcome.Outcome[entity.WorkflowResult]) {
	start := time.Now()
	chosenCombo := ""

	ctx, span := e.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String("inquiry.id", inquiry.Id),
		attribute.String("inquiry.type", string(inquiry.Type)),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			result = outcome.Fail[entity.WorkflowResult](outcome.ErrorInfo{
				InquiryID: inquiry.Id,
				Message:   fmt.Sprintf("workflow panicked: %v", r),
			})
		}
		if !result.Success() {
			span.SetStatus(codes.Error, result.Error().Message)
			e.logger.Error(module, "Workflow failed", map[string]interface{}{
				"inquiry_id": inquiry.Id,
				"combo":      chosenCombo,
				"stage":      result.Error().Stage,
				"error":      result.Error().Message,
			})
		}
		e.recorder.ObserveWorkflow(chosenCombo, result.Success(), time.Since(start))
	}()

	e.logger.Info(module, "Starting workflow", map[string]interface{}{
		"inquiry_id": inquiry.Id,
		"user_id":    inquiry.UserId,
		"type":       inquiry.Type,
	})

	baseCtx := combo.BuildBaseContext(inquiry)
	selected, err := e.flags.ResolveCombo(ctx, baseCtx)
	if err != nil {
		return e.fail(inquiry.Id, "", fmt.Errorf("resolve combo: %w", err))
	}
	chosenCombo = selected
	comboCtx := combo.BuildComboContext(baseCtx, selected)
	span.SetAttributes(attribute.String("workflow.combo", selected))

	// PHASE 1: INTENT
	e.logger.Debug(module, "[PHASE 1] Classifying intent", map[string]interface{}{"inquiry_id": inquiry.Id, "combo": selected})
	intentRun, err := runStage(ctx, e, stage.NameIntent, e.keys.Intent, comboCtx, e.stages.Intent, inquiry)
	if err != nil {
		return e.fail(inquiry.Id, stage.NameIntent, err)
	}
	if !intentRun.out.Success() {
		return stageFailure(inquiry.Id, stage.NameIntent, intentRun.out)
	}
	intent := intentRun.out.Value()

	// PHASE 2: RETRIEVAL
	e.logger.Debug(module, "[PHASE 2] Retrieving documents", map[string]interface{}{"inquiry_id": inquiry.Id, "category": intent.Category})
	retrievalRun, err := runStage(ctx, e, stage.NameRetrieval, e.keys.Retrieval, comboCtx, e.stages.Retrieval,
		retrieval.Input{InquiryID: inquiry.Id, Intent: intent})
	if err != nil {
		return e.fail(inquiry.Id, stage.NameRetrieval, err)
	}
	if !retrievalRun.out.Success() {
		return stageFailure(inquiry.Id, stage.NameRetrieval, retrievalRun.out)
	}
	docs := retrievalRun.out.Value()

	// PHASE 3: RESPONSE
	e.logger.Debug(module, "[PHASE 3] Generating response", map[string]interface{}{"inquiry_id": inquiry.Id, "documents": len(docs.Documents)})
	responseRun, err := runStage(ctx, e, stage.NameResponse, e.keys.Response, comboCtx, e.stages.Response,
		response.Input{InquiryID: inquiry.Id, Intent: intent, Retrieval: docs})
	if err != nil {
		return e.fail(inquiry.Id, stage.NameResponse, err)
	}
	if !responseRun.out.Success() {
		return stageFailure(inquiry.Id, stage.NameResponse, responseRun.out)
	}

	elapsed := time.Since(start)
	e.logger.Info(module, "Workflow completed", map[string]interface{}{
		"inquiry_id": inquiry.Id,
		"combo":      selected,
		"category":   intent.Category,
		"format":     responseRun.out.Value().Format,
		"elapsed_ms": elapsed.Milliseconds(),
	})

	return outcome.Ok(entity.WorkflowResult{
		InquiryId: inquiry.Id,
		Combo:     selected,
		Intent:    intent,
		Retrieval: docs,
		Response:  responseRun.out.Value(),
		ElapsedMs: elapsed.Milliseconds(),
		Timings: entity.StageTimings{
			IntentMs:    intentRun.elapsed.Milliseconds(),
			RetrievalMs: retrievalRun.elapsed.Milliseconds(),
			ResponseMs:  responseRun.elapsed.Milliseconds(),
		},
		Configs: entity.StageConfigs{
			Intent:    intentRun.config,
			Retrieval: retrievalRun.config,
			Response:  responseRun.config,
		},
	})
}

func (e *WorkflowExecutor) fail(inquiryID, stageName string, err error) outcome.Outcome[entity.WorkflowResult] {
	return outcome.Fail[entity.WorkflowResult](outcome.ErrorInfo{
		InquiryID: inquiryID,
		Stage:     stageName,
		Message:   err.Error(),
	})
}

type stageRun[Out any] struct {
	out     outcome.Outcome[Out]
	config  entity.PromptConfig
	elapsed time.Duration
}

func runStage[In, Out any](
	ctx context.Context,
	e *WorkflowExecutor,
	name, flagKey string,
	evalCtx featureflag.EvaluationContext,
	processor stage.Processor[In, Out],
	input In,
) (stageRun[Out], error) {
	cfg, err := e.flags.ResolveStageConfig(ctx, flagKey, evalCtx)
	if err != nil {
		return stageRun[Out]{}, fmt.Errorf("resolve %s config: %w", flagKey, err)
	}

	ctx, span := e.tracer.Start(ctx, "stage."+name, trace.WithAttributes(
		attribute.String("stage.model", cfg.Model),
		attribute.Float64("stage.temperature", cfg.TemperatureValue()),
		attribute.String("stage.strategy", cfg.Strategy),
	))
	defer span.End()

	start := time.Now()
	out := processor.Execute(ctx, input, cfg)
	elapsed := time.Since(start)
	e.recorder.ObserveStage(name, elapsed)

	if !out.Success() {
		span.SetStatus(codes.Error, out.Error().Message)
	}
	return stageRun[Out]{out: out, config: cfg, elapsed: elapsed}, nil
}

// stageFailure stamps the inquiry and stage onto a failed stage outcome.
func stageFailure[Out any](inquiryID, stageName string, out outcome.Outcome[Out]) outcome.Outcome[entity.WorkflowResult] {
	info := out.Error()
	if info.InquiryID == "" {
		info.InquiryID = inquiryID
	}
	if info.Stage == "" {
		info.Stage = stageName
	}
	return outcome.Fail[entity.WorkflowResult](info)
}
