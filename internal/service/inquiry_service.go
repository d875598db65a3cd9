package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"support-flow-be/internal/config"
	"support-flow-be/internal/entity"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/internal/repository/memory"
	"support-flow-be/pkg/events"
	"support-flow-be/pkg/outcome"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const inquiryModule = "InquiryService"

var ErrRunNotFound = errors.New("run not found")

// WorkflowRunner executes one inquiry end to end.
type WorkflowRunner interface {
	Execute(ctx context.Context, inquiry entity.Inquiry) outcome.Outcome[entity.WorkflowResult]
}

// EventPublisher is implemented by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// RunNotifier pushes run updates to live subscribers. Implemented by the
// WebSocket hub.
type RunNotifier interface {
	Send(userID string, messageType string, data interface{})
}

// RunQueue hands a run id to the async worker.
type RunQueue interface {
	Enqueue(ctx context.Context, runID string) error
}

type IInquiryService interface {
	Run(ctx context.Context, inquiry entity.Inquiry) outcome.Outcome[entity.WorkflowResult]
	Submit(ctx context.Context, inquiry entity.Inquiry) (entity.RunRecord, error)
	GetRun(ctx context.Context, runID string) (entity.RunRecord, error)
	// ProcessRun executes a queued run, retrying failed attempts.
	ProcessRun(ctx context.Context, runID string) error
}

type inquiryService struct {
	runner   WorkflowRunner
	runs     *memory.RunRepository
	queue    RunQueue
	events   EventPublisher
	notifier RunNotifier
	worker   config.WorkerConfig
	logger   logger.ILogger
}

// NewInquiryService wires the run store and outbound channels. events and
// notifier may be nil.
func NewInquiryService(
	runner WorkflowRunner,
	runs *memory.RunRepository,
	queue RunQueue,
	eventPublisher EventPublisher,
	notifier RunNotifier,
	worker config.WorkerConfig,
	log logger.ILogger,
) IInquiryService {
	return &inquiryService{
		runner:   runner,
		runs:     runs,
		queue:    queue,
		events:   eventPublisher,
		notifier: notifier,
		worker:   worker,
		logger:   log,
	}
}

func (s *inquiryService) Run(ctx context.Context, inquiry entity.Inquiry) outcome.Outcome[entity.WorkflowResult] {
	return s.runner.Execute(ctx, inquiry)
}

func (s *inquiryService) Submit(ctx context.Context, inquiry entity.Inquiry) (entity.RunRecord, error) {
	if s.queue == nil {
		return entity.RunRecord{}, fmt.Errorf("async runs are not enabled")
	}

	now := time.Now().UTC()
	run := entity.RunRecord{
		Id:        uuid.NewString(),
		Inquiry:   inquiry,
		Status:    entity.RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.runs.Save(run)

	if err := s.queue.Enqueue(ctx, run.Id); err != nil {
		run.Status = entity.RunStatusFailed
		run.Error = fmt.Sprintf("enqueue: %v", err)
		s.update(ctx, run)
		return entity.RunRecord{}, fmt.Errorf("enqueue run %s: %w", run.Id, err)
	}

	s.logger.Info(inquiryModule, "Run queued", map[string]interface{}{"run_id": run.Id, "inquiry_id": inquiry.Id})
	s.notify(run)
	return run, nil
}

func (s *inquiryService) GetRun(_ context.Context, runID string) (entity.RunRecord, error) {
	run, ok := s.runs.Get(runID)
	if !ok {
		return entity.RunRecord{}, ErrRunNotFound
	}
	return run, nil
}

func (s *inquiryService) ProcessRun(ctx context.Context, runID string) error {
	run, ok := s.runs.Get(runID)
	if !ok {
		return ErrRunNotFound
	}
	if run.Status.Terminal() {
		return nil
	}

	run.Status = entity.RunStatusRunning
	s.update(ctx, run)
	s.publish(ctx, events.TypeWorkflowStarted, run)

	var result entity.WorkflowResult
	err := retry.Do(ctx, runBackoff(s.worker), func(ctx context.Context) error {
		run.Attempts++
		out := s.runner.Execute(ctx, run.Inquiry)
		if out.Success() {
			result = out.Value()
			return nil
		}

		run.Error = out.Error().Error()
		s.update(ctx, run)
		s.logger.Warn(inquiryModule, "Run attempt failed", map[string]interface{}{
			"run_id":  run.Id,
			"attempt": run.Attempts,
			"error":   run.Error,
		})
		return retry.RetryableError(out.Error())
	})

	if err != nil {
		run.Status = entity.RunStatusFailed
		if run.Error == "" {
			run.Error = err.Error()
		}
		s.update(ctx, run)
		s.publish(ctx, events.TypeWorkflowFailed, run)
		s.logger.Error(inquiryModule, "Run failed", map[string]interface{}{
			"run_id":     run.Id,
			"inquiry_id": run.Inquiry.Id,
			"attempts":   run.Attempts,
			"error":      run.Error,
		})
		return nil
	}

	run.Status = entity.RunStatusSucceeded
	run.Result = &result
	run.Error = ""
	s.update(ctx, run)
	s.publish(ctx, events.TypeWorkflowCompleted, run)
	s.logger.Info(inquiryModule, "Run succeeded", map[string]interface{}{
		"run_id":   run.Id,
		"combo":    result.Combo,
		"attempts": run.Attempts,
	})
	return nil
}

// runBackoff allows MaxAttempts calls in total, doubling the wait from
// RetryMinDelay up to RetryMaxDelay.
func runBackoff(cfg config.WorkerConfig) retry.Backoff {
	minDelay := cfg.RetryMinDelay
	if minDelay <= 0 {
		minDelay = time.Millisecond
	}
	maxDelay := cfg.RetryMaxDelay
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := retry.NewExponential(minDelay)
	backoff = retry.WithCappedDuration(maxDelay, backoff)
	return retry.WithMaxRetries(uint64(attempts-1), backoff) // #nosec G115 -- clamped above
}

func (s *inquiryService) update(_ context.Context, run entity.RunRecord) {
	run.UpdatedAt = time.Now().UTC()
	s.runs.Save(run)
	s.notify(run)
}

func (s *inquiryService) notify(run entity.RunRecord) {
	if s.notifier == nil {
		return
	}
	s.notifier.Send(run.Inquiry.UserId, "run", runEventData(run))
}

func (s *inquiryService) publish(ctx context.Context, eventType string, run entity.RunRecord) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.New(eventType, runEventData(run))); err != nil {
		s.logger.Warn(inquiryModule, "Failed to publish event", map[string]interface{}{
			"type":   eventType,
			"run_id": run.Id,
			"error":  err.Error(),
		})
	}
}

func runEventData(run entity.RunRecord) map[string]interface{} {
	data := map[string]interface{}{
		"run_id":     run.Id,
		"inquiry_id": run.Inquiry.Id,
		"user_id":    run.Inquiry.UserId,
		"status":     string(run.Status),
		"attempts":   run.Attempts,
	}
	if run.Result != nil {
		data["combo"] = run.Result.Combo
		data["category"] = run.Result.Intent.Category
		data["elapsed_ms"] = run.Result.ElapsedMs
	}
	if run.Error != "" {
		data["error"] = run.Error
	}
	return data
}
