package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types. The NATS subject is "events." + type.
const (
	TypeWorkflowStarted   = "workflow.started"
	TypeWorkflowCompleted = "workflow.completed"
	TypeWorkflowFailed    = "workflow.failed"
	TypeInquirySubmitted  = "inquiry.submitted"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "workflow.started").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

// New stamps the event with an id and the current time.
func New(eventType string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	now := time.Now().UTC()
	payload["event_id"] = uuid.NewString()
	payload["occurred_at"] = now.Format(time.RFC3339Nano)

	return BaseEvent{Type: eventType, Data: payload, OccurredAt: now}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
