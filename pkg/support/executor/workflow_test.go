package executor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"support-flow-be/internal/entity"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/featureflag"
	"support-flow-be/pkg/llm"
	"support-flow-be/pkg/outcome"
	"support-flow-be/pkg/support/combo"
	"support-flow-be/pkg/support/intent"
	"support-flow-be/pkg/support/promptconfig"
	"support-flow-be/pkg/support/response"
	"support-flow-be/pkg/support/retrieval"
	"support-flow-be/pkg/support/stage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = StageKeys{Intent: "intent-analysis", Retrieval: "info-retrieval", Response: "response-generation"}

// fakeFlags serves defaults and records every context it is asked about.
type fakeFlags struct {
	mu        sync.Mutex
	combo     string
	comboErr  error
	configErr error
	overrides map[string]entity.PromptConfig
	defaults  *promptconfig.Defaults
	comboCtxs []featureflag.EvaluationContext
	stageCtxs map[string]featureflag.EvaluationContext
}

func newFakeFlags(combo string) *fakeFlags {
	return &fakeFlags{
		combo:     combo,
		overrides: map[string]entity.PromptConfig{},
		defaults:  promptconfig.NewDefaults(keys.Intent, keys.Retrieval, keys.Response),
		stageCtxs: map[string]featureflag.EvaluationContext{},
	}
}

func (f *fakeFlags) ResolveCombo(_ context.Context, evalCtx featureflag.EvaluationContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comboCtxs = append(f.comboCtxs, evalCtx)
	return f.combo, f.comboErr
}

func (f *fakeFlags) ResolveStageConfig(_ context.Context, flagKey string, evalCtx featureflag.EvaluationContext) (entity.PromptConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stageCtxs[flagKey] = evalCtx
	if f.configErr != nil {
		return entity.PromptConfig{}, f.configErr
	}
	if cfg, ok := f.overrides[flagKey]; ok {
		return cfg, nil
	}
	return f.defaults.For(flagKey), nil
}

func realStages(gen llm.Generator) Stages {
	log := logger.NewNopLogger()
	return Stages{
		Intent:    intent.NewClassifier(gen, log, metrics.Nop()),
		Retrieval: retrieval.NewRetriever(gen, log, metrics.Nop()),
		Response:  response.NewGenerator(gen, log, metrics.Nop()),
	}
}

var inq001 = entity.Inquiry{Id: "INQ-001", UserId: "user-123", Type: entity.InquiryTypeCritical, Message: "API down, 500 errors"}

func TestExecuteWithEverythingUnreachable(t *testing.T) {
	e := NewWorkflowExecutor(newFakeFlags("combo_a"), keys, realStages(llm.Unavailable{}), logger.NewNopLogger(), metrics.Nop())

	out := e.Execute(context.Background(), inq001)

	require.True(t, out.Success())
	res := out.Value()
	assert.Equal(t, "INQ-001", res.InquiryId)
	assert.Equal(t, "combo_a", res.Combo)
	assert.Equal(t, entity.IntentResult{Category: "FEATURE", Urgency: "medium", Confidence: 0.85}, res.Intent)
	assert.Len(t, res.Retrieval.Documents, 2)
	assert.Len(t, res.Retrieval.Sources, 1)
	assert.Equal(t, entity.ResponseResult{
		Message: "Thank you for contacting support. We've identified this as a FEATURE issue.",
		Format:  "text",
	}, res.Response)
	assert.Equal(t, 0.7, res.Configs.Intent.TemperatureValue())
	assert.GreaterOrEqual(t, res.ElapsedMs, int64(0))
}

func TestStructuredResponseCarriesRetrievedDocuments(t *testing.T) {
	flags := newFakeFlags("combo_b")
	low := 0.2
	flags.overrides[keys.Intent] = entity.PromptConfig{Model: "gpt-4", Temperature: &low}
	flags.overrides[keys.Retrieval] = entity.PromptConfig{Model: "gpt-4", Temperature: &low, Strategy: "rag"}
	flags.overrides[keys.Response] = entity.PromptConfig{Model: "o3-mini", Temperature: &low, Strategy: "structured"}
	e := NewWorkflowExecutor(flags, keys, realStages(llm.Unavailable{}), logger.NewNopLogger(), metrics.Nop())

	out := e.Execute(context.Background(), inq001)

	require.True(t, out.Success())
	res := out.Value()
	assert.Equal(t, "CRITICAL", res.Intent.Category)
	assert.Len(t, res.Retrieval.Documents, 3)
	assert.Equal(t, "structured", res.Response.Format)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(res.Response.Message), &payload))
	assert.ElementsMatch(t, []interface{}{"KB-001", "KB-045", "KB-089"}, payload["resources"])
}

func TestComboAppliesToEveryStageLookup(t *testing.T) {
	flags := newFakeFlags("combo_b")
	e := NewWorkflowExecutor(flags, keys, realStages(llm.Unavailable{}), logger.NewNopLogger(), metrics.Nop())

	e.Execute(context.Background(), inq001)

	require.Len(t, flags.comboCtxs, 1)
	_, hasCombo := flags.comboCtxs[0].Attribute(combo.AttributeCombo)
	assert.False(t, hasCombo, "combo lookup uses the base context")

	want := combo.BuildComboContext(combo.BuildBaseContext(inq001), "combo_b")
	require.Len(t, flags.stageCtxs, 3)
	for key, got := range flags.stageCtxs {
		assert.True(t, want.Equal(got), "stage %s", key)
	}
}

type recordingProcessor[In, Out any] struct {
	calls int
	out   outcome.Outcome[Out]
}

func (p *recordingProcessor[In, Out]) Execute(context.Context, In, entity.PromptConfig) outcome.Outcome[Out] {
	p.calls++
	return p.out
}

func TestAbortOnStageFailure(t *testing.T) {
	okIntent := outcome.Ok(entity.IntentResult{Category: "QUICK", Urgency: "low", Confidence: 0.9})
	okRetrieval := outcome.Ok(entity.RetrievalResult{Documents: []string{"KB-1"}, Sources: []string{"kb"}})
	okResponse := outcome.Ok(entity.ResponseResult{Message: "hi", Format: "text"})

	tests := []struct {
		name          string
		failStage     string
		wantCalls     [3]int
		wantErrorPart string
	}{
		{"intent fails", stage.NameIntent, [3]int{1, 0, 0}, "intent"},
		{"retrieval fails", stage.NameRetrieval, [3]int{1, 1, 0}, "retrieval"},
		{"response fails", stage.NameResponse, [3]int{1, 1, 1}, "response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &recordingProcessor[entity.Inquiry, entity.IntentResult]{out: okIntent}
			re := &recordingProcessor[retrieval.Input, entity.RetrievalResult]{out: okRetrieval}
			rs := &recordingProcessor[response.Input, entity.ResponseResult]{out: okResponse}
			switch tt.failStage {
			case stage.NameIntent:
				in.out = outcome.Failf[entity.IntentResult]("model refused")
			case stage.NameRetrieval:
				re.out = outcome.Failf[entity.RetrievalResult]("index offline")
			case stage.NameResponse:
				rs.out = outcome.Failf[entity.ResponseResult]("empty")
			}
			e := NewWorkflowExecutor(newFakeFlags("combo_a"), keys, Stages{in, re, rs}, logger.NewNopLogger(), metrics.Nop())

			out := e.Execute(context.Background(), inq001)

			require.False(t, out.Success())
			assert.Equal(t, entity.WorkflowResult{}, out.Value())
			assert.Equal(t, "INQ-001", out.Error().InquiryID)
			assert.Equal(t, tt.wantErrorPart, out.Error().Stage)
			assert.Equal(t, tt.wantCalls, [3]int{in.calls, re.calls, rs.calls})
		})
	}
}

func TestNotInitializedFlagsFailTheWorkflow(t *testing.T) {
	flags := newFakeFlags("combo_a")
	flags.comboErr = featureflag.ErrNotInitialized
	in := &recordingProcessor[entity.Inquiry, entity.IntentResult]{}
	e := NewWorkflowExecutor(flags, keys, Stages{Intent: in}, logger.NewNopLogger(), metrics.Nop())

	out := e.Execute(context.Background(), inq001)

	require.False(t, out.Success())
	assert.Contains(t, out.Error().Message, "not initialized")
	assert.Equal(t, "INQ-001", out.Error().InquiryID)
	assert.Zero(t, in.calls)
}

func TestStageConfigErrorFailsTheWorkflow(t *testing.T) {
	flags := newFakeFlags("combo_a")
	flags.configErr = featureflag.ErrNotInitialized
	e := NewWorkflowExecutor(flags, keys, realStages(llm.Unavailable{}), logger.NewNopLogger(), metrics.Nop())

	out := e.Execute(context.Background(), inq001)

	require.False(t, out.Success())
	assert.Equal(t, stage.NameIntent, out.Error().Stage)
}

func TestPanicsBecomeFailures(t *testing.T) {
	panicking := stage.ProcessorFunc[retrieval.Input, entity.RetrievalResult](
		func(context.Context, retrieval.Input, entity.PromptConfig) outcome.Outcome[entity.RetrievalResult] {
			panic("nil map")
		})
	stages := realStages(llm.Unavailable{})
	stages.Retrieval = panicking
	e := NewWorkflowExecutor(newFakeFlags("combo_a"), keys, stages, logger.NewNopLogger(), metrics.Nop())

	var out outcome.Outcome[entity.WorkflowResult]
	require.NotPanics(t, func() { out = e.Execute(context.Background(), inq001) })

	require.False(t, out.Success())
	assert.Contains(t, out.Error().Message, "nil map")
	assert.Equal(t, "INQ-001", out.Error().InquiryID)
}

func TestConcurrentRunsShareOneResolver(t *testing.T) {
	flags := newFakeFlags("combo_a")
	e := NewWorkflowExecutor(flags, keys, realStages(llm.Unavailable{}), logger.NewNopLogger(), metrics.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, e.Execute(context.Background(), inq001).Success())
		}()
	}
	wg.Wait()

	assert.Len(t, flags.comboCtxs, 20)
}
