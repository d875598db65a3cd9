// Package retrieval selects knowledge base documents for a classified inquiry.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"

	"support-flow-be/internal/constant"
	"support-flow-be/internal/entity"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/llm"
	"support-flow-be/pkg/outcome"
	"support-flow-be/pkg/support/stage"
)

const module = "RetrievalStage"

var (
	standardDocuments = []string{"KB-001", "KB-045"}
	standardSources   = []string{"knowledge-base"}
	ragDocuments      = []string{"KB-001", "KB-045", "KB-089"}
	ragSources        = []string{"knowledge-base", "vector-db", "recent-tickets"}
)

type Input struct {
	InquiryID string
	Intent    entity.IntentResult
}

// Retriever is the Retrieval stage.
type Retriever struct {
	generator llm.Generator
	logger    logger.ILogger
	fallback  stage.FallbackReporter
}

var _ stage.Processor[Input, entity.RetrievalResult] = (*Retriever)(nil)

func NewRetriever(generator llm.Generator, log logger.ILogger, recorder metrics.Recorder) *Retriever {
	return &Retriever{
		generator: generator,
		logger:    log,
		fallback: stage.FallbackReporter{
			Stage:    stage.NameRetrieval,
			Module:   module,
			Logger:   log,
			Recorder: recorder,
		},
	}
}

func (r *Retriever) Execute(ctx context.Context, input Input, config entity.PromptConfig) (result outcome.Outcome[entity.RetrievalResult]) {
	defer func() {
		if rec := recover(); rec != nil {
			fb := FallbackFor(config)
			r.fallback.Report(input.InquiryID, "panic", nil, fb)
			result = outcome.Ok(fb)
		}
	}()

	intent := input.Intent
	systemPrompt := fmt.Sprintf(constant.RetrievalSystemPromptTemplate, intent.Category, intent.Urgency, intent.Confidence)
	userPrompt := fmt.Sprintf(constant.RetrievalUserPromptTemplate, intent.Category, intent.Urgency)

	r.logger.Debug(module, "Retrieving documents", map[string]interface{}{
		"inquiry_id": input.InquiryID,
		"model":      config.Model,
		"strategy":   config.Strategy,
		"category":   intent.Category,
	})

	text, err := stage.Generate(ctx, r.generator, config, systemPrompt, userPrompt)
	if err != nil {
		fb := FallbackFor(config)
		r.fallback.Report(input.InquiryID, "generation failed", err, fb)
		return outcome.Ok(fb)
	}

	parsed, ok := Parse(text)
	if !ok {
		fb := FallbackFor(config)
		r.fallback.Report(input.InquiryID, "no document list in output", nil, fb)
		return outcome.Ok(fb)
	}

	r.logger.Info(module, "Documents retrieved", map[string]interface{}{
		"inquiry_id": input.InquiryID,
		"documents":  len(parsed.Documents),
		"sources":    parsed.Sources,
	})
	return outcome.Ok(parsed)
}

// FallbackFor returns the canned document set for the configured strategy.
func FallbackFor(config entity.PromptConfig) entity.RetrievalResult {
	if config.Strategy == entity.StrategyRAG {
		return entity.RetrievalResult{Documents: clone(ragDocuments), Sources: clone(ragSources)}
	}
	return entity.RetrievalResult{Documents: clone(standardDocuments), Sources: clone(standardSources)}
}

type documentList struct {
	Documents []string `json:"documents"`
	Sources   []string `json:"sources"`
}

// Parse reads {documents, sources} out of raw model output. Each list falls
// back independently when absent or empty. ok is false when no object
// parses.
func Parse(text string) (entity.RetrievalResult, bool) {
	raw, found := stage.ExtractJSONObject(text)
	if !found {
		return entity.RetrievalResult{}, false
	}

	var d documentList
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return entity.RetrievalResult{}, false
	}

	result := entity.RetrievalResult{Documents: d.Documents, Sources: d.Sources}
	if len(result.Documents) == 0 {
		result.Documents = clone(standardDocuments)
	}
	if len(result.Sources) == 0 {
		result.Sources = clone(standardSources)
	}
	return result, true
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
