// Package response writes the customer-facing reply.
package response

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"strings"

	"support-flow-be/internal/constant"
	"support-flow-be/internal/entity"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/llm"
	"support-flow-be/pkg/outcome"
	"support-flow-be/pkg/support/stage"
)

const module = "ResponseStage"

type Input struct {
	InquiryID string
	Intent    entity.IntentResult
	Retrieval entity.RetrievalResult
}

// StructuredReply is the payload synthesized when structured output cannot
// be taken from the model.
type StructuredReply struct {
	Greeting   string   `json:"greeting"`
	Assessment string   `json:"assessment"`
	Action     string   `json:"action"`
	Resources  []string `json:"resources"`
	TicketID   string   `json:"ticketId"`
}

// Generator is the Response stage.
type Generator struct {
	generator llm.Generator
	logger    logger.ILogger
	fallback  stage.FallbackReporter
}

var _ stage.Processor[Input, entity.ResponseResult] = (*Generator)(nil)

func NewGenerator(generator llm.Generator, log logger.ILogger, recorder metrics.Recorder) *Generator {
	return &Generator{
		generator: generator,
		logger:    log,
		fallback: stage.FallbackReporter{
			Stage:    stage.NameResponse,
			Module:   module,
			Logger:   log,
			Recorder: recorder,
		},
	}
}

func (g *Generator) Execute(ctx context.Context, input Input, config entity.PromptConfig) (result outcome.Outcome[entity.ResponseResult]) {
	structured := config.Strategy == entity.StrategyStructured

	defer func() {
		if r := recover(); r != nil {
			fb := FallbackFor(input, structured)
			g.fallback.Report(input.InquiryID, "panic", nil, fb.Format)
			result = outcome.Ok(fb)
		}
	}()

	systemPrompt, userPrompt := prompts(input, structured)

	g.logger.Debug(module, "Generating response", map[string]interface{}{
		"inquiry_id": input.InquiryID,
		"model":      config.Model,
		"structured": structured,
	})

	text, err := stage.Generate(ctx, g.generator, config, systemPrompt, userPrompt)
	if err != nil {
		fb := FallbackFor(input, structured)
		g.fallback.Report(input.InquiryID, "generation failed", err, fb.Format)
		return outcome.Ok(fb)
	}

	if structured {
		if raw, ok := stage.ExtractJSONObject(text); ok && json.Valid([]byte(raw)) {
			return outcome.Ok(entity.ResponseResult{Message: raw, Format: entity.FormatStructured})
		}
		fb := FallbackFor(input, true)
		g.fallback.Report(input.InquiryID, "no structured reply in output", nil, fb.Format)
		return outcome.Ok(fb)
	}

	message := strings.TrimSpace(text)
	if message == "" {
		fb := FallbackFor(input, false)
		g.fallback.Report(input.InquiryID, "empty reply", nil, fb.Format)
		return outcome.Ok(fb)
	}

	g.logger.Info(module, "Response generated", map[string]interface{}{
		"inquiry_id": input.InquiryID,
		"preview":    stage.Truncate(message, 80),
	})
	return outcome.Ok(entity.ResponseResult{Message: message, Format: entity.FormatText})
}

func prompts(input Input, structured bool) (string, string) {
	intent := input.Intent
	sources := strings.Join(input.Retrieval.Sources, ", ")
	if structured {
		return fmt.Sprintf(constant.ResponseStructuredPromptTemplate,
			intent.Category, intent.Urgency, intent.Confidence,
			strings.Join(input.Retrieval.Documents, ", "), sources), constant.ResponseStructuredUserPrompt
	}
	return fmt.Sprintf(constant.ResponseTextPromptTemplate,
		intent.Category, intent.Urgency, len(input.Retrieval.Documents), sources), constant.ResponseTextUserPrompt
}

// FallbackFor returns the synthesized structured payload, or the canned
// sentence in text mode.
func FallbackFor(input Input, structured bool) entity.ResponseResult {
	if !structured {
		return entity.ResponseResult{
			Message: fmt.Sprintf(constant.ResponseTextFallbackTemplate, input.Intent.Category),
			Format:  entity.FormatText,
		}
	}

	resources := input.Retrieval.Documents
	if resources == nil {
		resources = []string{}
	}
	body, _ := json.Marshal(StructuredReply{
		Greeting:   constant.ResponseGreeting,
		Assessment: fmt.Sprintf(constant.ResponseAssessmentTemplate, input.Intent.Category),
		Action:     constant.ResponseAction,
		Resources:  resources,
		TicketID:   TicketID(input.InquiryID),
	})
	return entity.ResponseResult{Message: string(body), Format: entity.FormatStructured}
}

// TicketID derives a stable ticket number from the inquiry id.
func TicketID(inquiryID string) string {
	return fmt.Sprintf("TKT-%05d", crc32.ChecksumIEEE([]byte(inquiryID))%100000)
}
