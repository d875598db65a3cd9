package service

import (
	"context"
	"encoding/json"
	"errors"

	"support-flow-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "ConsumerService"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber     message.Subscriber
	topicName      string
	inquiryService IInquiryService
	logger         logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	inquiryService IInquiryService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:     subscriber,
		topicName:      topicName,
		inquiryService: inquiryService,
		logger:         log,
	}
}

// Consume starts the worker loop. Each run is processed on its own goroutine
// so one slow run does not hold up the queue.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	cs.logger.Info(consumerModule, "Consumer started", map[string]interface{}{"topic": cs.topicName})
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload RunMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.RunId == "" {
		cs.logger.Error(consumerModule, "Failed to decode run message", map[string]interface{}{"message_id": msg.UUID})
		msg.Ack() // Ack invalid messages to prevent infinite redelivery
		return
	}

	// Retries happen inside ProcessRun; the message is acknowledged before
	// the run so the gochannel subscriber is not blocked on it.
	msg.Ack()

	go func() {
		if err := cs.inquiryService.ProcessRun(ctx, payload.RunId); err != nil {
			if errors.Is(err, ErrRunNotFound) {
				cs.logger.Warn(consumerModule, "Run expired before processing", map[string]interface{}{"run_id": payload.RunId})
				return
			}
			cs.logger.Error(consumerModule, "Run processing failed", map[string]interface{}{"run_id": payload.RunId, "error": err.Error()})
		}
	}()
}
