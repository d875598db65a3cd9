package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"support-flow-be/internal/config"
	"support-flow-be/internal/entity"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/internal/repository/memory"
	"support-flow-be/pkg/events"
	"support-flow-be/pkg/llm"
	"support-flow-be/pkg/outcome"
	"support-flow-be/pkg/support/executor"
	"support-flow-be/pkg/support/intent"
	"support-flow-be/pkg/support/response"
	"support-flow-be/pkg/support/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastWorker = config.WorkerConfig{
	Topic:         "support.inquiries",
	MaxAttempts:   3,
	RetryMinDelay: time.Millisecond,
	RetryMaxDelay: 2 * time.Millisecond,
	RunTTL:        time.Minute,
}

var inq001 = entity.Inquiry{Id: "INQ-001", UserId: "user-123", Type: entity.InquiryTypeCritical, Message: "API down, 500 errors"}

func okOutcome() outcome.Outcome[entity.WorkflowResult] {
	return outcome.Ok(entity.WorkflowResult{InquiryId: "INQ-001", Combo: "combo_a", Intent: entity.IntentResult{Category: "FEATURE"}})
}

func failOutcome(msg string) outcome.Outcome[entity.WorkflowResult] {
	return outcome.Fail[entity.WorkflowResult](outcome.ErrorInfo{InquiryID: "INQ-001", Message: msg})
}

type inquiryHarness struct {
	svc      IInquiryService
	runner   *scriptedRunner
	runs     *memory.RunRepository
	queue    *recordingQueue
	events   *recordingEvents
	notifier *recordingNotifier
}

func newInquiryHarness(outcomes ...outcome.Outcome[entity.WorkflowResult]) *inquiryHarness {
	h := &inquiryHarness{
		runner:   &scriptedRunner{outcomes: outcomes},
		runs:     memory.NewRunRepository(time.Minute),
		queue:    &recordingQueue{},
		events:   &recordingEvents{},
		notifier: &recordingNotifier{},
	}
	h.svc = NewInquiryService(h.runner, h.runs, h.queue, h.events, h.notifier, fastWorker, logger.NewNopLogger())
	return h
}

func TestSubmitQueuesPendingRun(t *testing.T) {
	h := newInquiryHarness(okOutcome())

	run, err := h.svc.Submit(context.Background(), inq001)

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusPending, run.Status)
	assert.Equal(t, []string{run.Id}, h.queue.ids)
	stored, err := h.svc.GetRun(context.Background(), run.Id)
	require.NoError(t, err)
	assert.Equal(t, inq001, stored.Inquiry)
	assert.Equal(t, []entity.RunStatus{entity.RunStatusPending}, h.notifier.statuses)
	assert.Equal(t, []string{"user-123"}, h.notifier.users)
}

func TestSubmitMarksRunFailedWhenQueueRejects(t *testing.T) {
	h := newInquiryHarness(okOutcome())
	h.queue.err = errors.New("queue closed")

	_, err := h.svc.Submit(context.Background(), inq001)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue closed")
	assert.Equal(t, 1, h.runs.Count())
}

func TestSubmitWithoutQueue(t *testing.T) {
	svc := NewInquiryService(&scriptedRunner{}, memory.NewRunRepository(time.Minute), nil, nil, nil, fastWorker, logger.NewNopLogger())

	_, err := svc.Submit(context.Background(), inq001)

	assert.Error(t, err)
}

func TestGetRunNotFound(t *testing.T) {
	h := newInquiryHarness(okOutcome())

	_, err := h.svc.GetRun(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, h.svc.ProcessRun(context.Background(), "missing"), ErrRunNotFound)
}

func TestProcessRunSucceedsFirstTime(t *testing.T) {
	h := newInquiryHarness(okOutcome())
	run, err := h.svc.Submit(context.Background(), inq001)
	require.NoError(t, err)

	require.NoError(t, h.svc.ProcessRun(context.Background(), run.Id))

	stored, err := h.svc.GetRun(context.Background(), run.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusSucceeded, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.Result)
	assert.Equal(t, "combo_a", stored.Result.Combo)
	assert.Empty(t, stored.Error)
	assert.Equal(t, []string{events.TypeWorkflowStarted, events.TypeWorkflowCompleted}, h.events.Types())
	assert.Equal(t, []entity.RunStatus{
		entity.RunStatusPending,
		entity.RunStatusRunning,
		entity.RunStatusSucceeded,
	}, h.notifier.statuses)
}

func TestProcessRunRetriesThenSucceeds(t *testing.T) {
	h := newInquiryHarness(failOutcome("flag backend down"), okOutcome())
	run, err := h.svc.Submit(context.Background(), inq001)
	require.NoError(t, err)

	require.NoError(t, h.svc.ProcessRun(context.Background(), run.Id))

	stored, _ := h.svc.GetRun(context.Background(), run.Id)
	assert.Equal(t, entity.RunStatusSucceeded, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	assert.Empty(t, stored.Error)
	assert.Equal(t, 2, h.runner.Calls())
}

func TestProcessRunGivesUpAfterMaxAttempts(t *testing.T) {
	h := newInquiryHarness(failOutcome("flag backend down"))
	run, err := h.svc.Submit(context.Background(), inq001)
	require.NoError(t, err)

	require.NoError(t, h.svc.ProcessRun(context.Background(), run.Id))

	stored, _ := h.svc.GetRun(context.Background(), run.Id)
	assert.Equal(t, entity.RunStatusFailed, stored.Status)
	assert.Equal(t, fastWorker.MaxAttempts, stored.Attempts)
	assert.Contains(t, stored.Error, "flag backend down")
	assert.Nil(t, stored.Result)
	assert.Equal(t, []string{events.TypeWorkflowStarted, events.TypeWorkflowFailed}, h.events.Types())
	assert.Equal(t, entity.RunStatusFailed, h.notifier.statuses[len(h.notifier.statuses)-1])
}

func TestProcessRunSkipsTerminalRuns(t *testing.T) {
	h := newInquiryHarness(okOutcome())
	run, err := h.svc.Submit(context.Background(), inq001)
	require.NoError(t, err)
	require.NoError(t, h.svc.ProcessRun(context.Background(), run.Id))

	require.NoError(t, h.svc.ProcessRun(context.Background(), run.Id))

	assert.Equal(t, 1, h.runner.Calls())
}

func TestRunBackoffClampsConfig(t *testing.T) {
	b := runBackoff(config.WorkerConfig{MaxAttempts: 0, RetryMinDelay: 0, RetryMaxDelay: 0})

	_, stop := b.Next()
	assert.True(t, stop, "a single attempt allows no retries")
}

// Every flag lookup fails, every generation fails: the run still succeeds on
// baseline defaults and fallbacks.
func TestRunEndToEndWithEverythingUnreachable(t *testing.T) {
	client := newFakeFlagClient()
	client.allErr = errors.New("flag service unreachable")
	flags := readyFlagService(t, client)

	log := logger.NewNopLogger()
	gen := llm.Unavailable{}
	stages := executor.Stages{
		Intent:    intent.NewClassifier(gen, log, metrics.Nop()),
		Retrieval: retrieval.NewRetriever(gen, log, metrics.Nop()),
		Response:  response.NewGenerator(gen, log, metrics.Nop()),
	}
	runner := executor.NewWorkflowExecutor(flags, flags.StageKeys(), stages, log, metrics.Nop())
	svc := NewInquiryService(runner, memory.NewRunRepository(time.Minute), nil, nil, nil, fastWorker, log)

	out := svc.Run(context.Background(), inq001)

	require.True(t, out.Success())
	res := out.Value()
	assert.Equal(t, "combo_a", res.Combo)
	assert.Equal(t, entity.IntentResult{Category: "FEATURE", Urgency: "medium", Confidence: 0.85}, res.Intent)
	assert.Equal(t, []string{"KB-001", "KB-045"}, res.Retrieval.Documents)
	assert.Equal(t, []string{"knowledge-base"}, res.Retrieval.Sources)
	assert.Equal(t, "Thank you for contacting support. We've identified this as a FEATURE issue.", res.Response.Message)
	assert.Equal(t, "text", res.Response.Format)
}
