package service

import (
	"context"
	"sync"

	"support-flow-be/internal/entity"
	"support-flow-be/pkg/events"
	"support-flow-be/pkg/featureflag"
	pktNats "support-flow-be/pkg/nats"
	"support-flow-be/pkg/outcome"
)

// fakeFlagClient serves fixed values per flag key.
type fakeFlagClient struct {
	mu       sync.Mutex
	initErr  error
	initWait chan struct{}
	strings  map[string]string
	objects  map[string]interface{}
	errs     map[string]error
	allErr   error
	closed   int
}

func newFakeFlagClient() *fakeFlagClient {
	return &fakeFlagClient{
		strings: map[string]string{},
		objects: map[string]interface{}{},
		errs:    map[string]error{},
	}
}

func (f *fakeFlagClient) WaitForInitialization(ctx context.Context) error {
	if f.initWait != nil {
		select {
		case <-f.initWait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.initErr
}

func (f *fakeFlagClient) lookupErr(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allErr != nil {
		return f.allErr
	}
	return f.errs[key]
}

func (f *fakeFlagClient) StringVariation(_ context.Context, key string, _ featureflag.EvaluationContext, def string) (string, error) {
	if err := f.lookupErr(key); err != nil {
		return def, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.strings[key]; ok {
		return v, nil
	}
	if _, ok := f.objects[key]; ok {
		return def, featureflag.ErrTypeMismatch
	}
	return def, featureflag.ErrFlagNotFound
}

func (f *fakeFlagClient) JSONVariation(_ context.Context, key string, _ featureflag.EvaluationContext, def interface{}) (interface{}, error) {
	if err := f.lookupErr(key); err != nil {
		return def, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.objects[key]; ok {
		return v, nil
	}
	return def, featureflag.ErrFlagNotFound
}

func (f *fakeFlagClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// scriptedRunner returns queued outcomes in order, then repeats the last.
type scriptedRunner struct {
	mu       sync.Mutex
	outcomes []outcome.Outcome[entity.WorkflowResult]
	calls    int
}

func (r *scriptedRunner) Execute(_ context.Context, inquiry entity.Inquiry) outcome.Outcome[entity.WorkflowResult] {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	if i >= len(r.outcomes) {
		i = len(r.outcomes) - 1
	}
	r.calls++
	return r.outcomes[i]
}

func (r *scriptedRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(_ context.Context, runID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, runID)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *recordingEvents) Publish(_ context.Context, event events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEvents) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.EventType())
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []entity.RunStatus
	users    []string
}

func (n *recordingNotifier) Send(userID string, _ string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	if m, ok := data.(map[string]interface{}); ok {
		n.statuses = append(n.statuses, entity.RunStatus(m["status"].(string)))
	}
}

type recordingInquiryService struct {
	IInquiryService
	mu        sync.Mutex
	submitted []entity.Inquiry
	processed chan string
	submitErr error
}

func (s *recordingInquiryService) Submit(_ context.Context, inquiry entity.Inquiry) (entity.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return entity.RunRecord{}, s.submitErr
	}
	s.submitted = append(s.submitted, inquiry)
	return entity.RunRecord{Id: "run-1", Inquiry: inquiry, Status: entity.RunStatusPending}, nil
}

func (s *recordingInquiryService) ProcessRun(_ context.Context, runID string) error {
	s.processed <- runID
	return nil
}

type capturingSubscriber struct {
	subject string
	durable string
	handler pktNats.EventHandler
}

func (c *capturingSubscriber) Subscribe(_ context.Context, subject, durable string, handler pktNats.EventHandler) error {
	c.subject, c.durable, c.handler = subject, durable, handler
	return nil
}
