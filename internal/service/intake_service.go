package service

import (
	"context"
	"fmt"

	"support-flow-be/internal/dto"
	"support-flow-be/internal/mapper"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/internal/pkg/serverutils"
	"support-flow-be/pkg/events"
	pktNats "support-flow-be/pkg/nats"

	"github.com/go-viper/mapstructure/v2"
)

const intakeModule = "IntakeService"

// IntakeDurable is the JetStream consumer name for inquiry intake.
const IntakeDurable = "support-inquiry-intake"

// EventSubscriber is implemented by the NATS subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// IntakeService turns inquiry.submitted events into async runs.
type IntakeService struct {
	subscriber     EventSubscriber
	inquiryService IInquiryService
	mapper         *mapper.InquiryMapper
	logger         logger.ILogger
}

func NewIntakeService(sub EventSubscriber, inquiryService IInquiryService, log logger.ILogger) *IntakeService {
	return &IntakeService{
		subscriber:     sub,
		inquiryService: inquiryService,
		mapper:         mapper.NewInquiryMapper(),
		logger:         log,
	}
}

func (s *IntakeService) Start(ctx context.Context) error {
	subject := pktNats.SubjectPrefix + events.TypeInquirySubmitted
	if err := s.subscriber.Subscribe(ctx, subject, IntakeDurable, s.HandleEvent); err != nil {
		return fmt.Errorf("start intake: %w", err)
	}
	return nil
}

// HandleEvent queues the inquiry carried by event. Invalid payloads are
// logged and acknowledged; only queueing failures are returned for redelivery.
func (s *IntakeService) HandleEvent(ctx context.Context, event events.Event) error {
	var req dto.SubmitInquiryRequest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(event.Payload()); err != nil {
		s.logger.Warn(intakeModule, "Undecodable inquiry event", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		s.logger.Warn(intakeModule, "Invalid inquiry event", map[string]interface{}{"error": err.Error()})
		return nil
	}

	run, err := s.inquiryService.Submit(ctx, s.mapper.ToEntity(&req))
	if err != nil {
		return err
	}
	s.logger.Info(intakeModule, "Inquiry accepted from NATS", map[string]interface{}{
		"run_id":     run.Id,
		"inquiry_id": run.Inquiry.Id,
	})
	return nil
}
