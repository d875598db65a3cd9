package service

import (
	"context"
	"errors"
	"testing"

	"support-flow-be/internal/entity"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeSubscribesToInquirySubject(t *testing.T) {
	sub := &capturingSubscriber{}
	intake := NewIntakeService(sub, &recordingInquiryService{}, logger.NewNopLogger())

	require.NoError(t, intake.Start(context.Background()))

	assert.Equal(t, "events.inquiry.submitted", sub.subject)
	assert.Equal(t, IntakeDurable, sub.durable)
	assert.NotNil(t, sub.handler)
}

func TestIntakeSubmitsValidInquiry(t *testing.T) {
	inquiries := &recordingInquiryService{}
	intake := NewIntakeService(&capturingSubscriber{}, inquiries, logger.NewNopLogger())

	err := intake.HandleEvent(context.Background(), events.New(events.TypeInquirySubmitted, map[string]interface{}{
		"id":        "INQ-002",
		"userId":    "user-456",
		"type":      "integration",
		"message":   "Webhook retries",
		"timestamp": "2024-05-01T10:00:00Z",
	}))

	require.NoError(t, err)
	require.Len(t, inquiries.submitted, 1)
	got := inquiries.submitted[0]
	assert.Equal(t, "INQ-002", got.Id)
	assert.Equal(t, "user-456", got.UserId)
	assert.Equal(t, entity.InquiryTypeIntegration, got.Type)
	require.NotNil(t, got.Timestamp)
	assert.Equal(t, 2024, got.Timestamp.Year())
}

func TestIntakeDropsInvalidInquiry(t *testing.T) {
	inquiries := &recordingInquiryService{}
	intake := NewIntakeService(&capturingSubscriber{}, inquiries, logger.NewNopLogger())

	err := intake.HandleEvent(context.Background(), events.New(events.TypeInquirySubmitted, map[string]interface{}{
		"userId":  "user-456",
		"type":    "billing",
		"message": "hi",
	}))

	require.NoError(t, err, "invalid payloads are acknowledged")
	assert.Empty(t, inquiries.submitted)
}

func TestIntakeReturnsQueueFailures(t *testing.T) {
	inquiries := &recordingInquiryService{submitErr: errors.New("queue closed")}
	intake := NewIntakeService(&capturingSubscriber{}, inquiries, logger.NewNopLogger())

	err := intake.HandleEvent(context.Background(), events.New(events.TypeInquirySubmitted, map[string]interface{}{
		"userId":  "user-1",
		"type":    "quick",
		"message": "Reset password",
	}))

	assert.Error(t, err)
}
