// Package intent classifies an inquiry into a category, urgency and confidence.
package intent

import (
	"context"
	"encoding/json"

	"support-flow-be/internal/constant"
	"support-flow-be/internal/entity"
	"support-flow-be/internal/metrics"
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/pkg/llm"
	"support-flow-be/pkg/outcome"
	"support-flow-be/pkg/support/stage"
)

const module = "IntentStage"

// lowTemperatureThreshold splits the backend-failure fallback: configs colder
// than this are treated as the conservative, incident-oriented setup.
const lowTemperatureThreshold = 0.6

// Default values used when a parsed classification omits a field.
const (
	defaultParsedConfidence = 0.85
	noJSONConfidence        = 0.75
	criticalConfidence      = 0.95
)

// Classifier is the Intent stage.
type Classifier struct {
	generator llm.Generator
	logger    logger.ILogger
	fallback  stage.FallbackReporter
}

var _ stage.Processor[entity.Inquiry, entity.IntentResult] = (*Classifier)(nil)

func NewClassifier(generator llm.Generator, log logger.ILogger, recorder metrics.Recorder) *Classifier {
	return &Classifier{
		generator: generator,
		logger:    log,
		fallback: stage.FallbackReporter{
			Stage:    stage.NameIntent,
			Module:   module,
			Logger:   log,
			Recorder: recorder,
		},
	}
}

func (c *Classifier) Execute(ctx context.Context, inquiry entity.Inquiry, config entity.PromptConfig) (result outcome.Outcome[entity.IntentResult]) {
	defer func() {
		if r := recover(); r != nil {
			fb := FallbackFor(config)
			c.fallback.Report(inquiry.Id, "panic", nil, fb)
			result = outcome.Ok(fb)
		}
	}()

	systemPrompt := config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = constant.IntentClassificationPrompt
	}

	c.logger.Debug(module, "Classifying inquiry", map[string]interface{}{
		"inquiry_id":    inquiry.Id,
		"model":         config.Model,
		"temperature":   config.TemperatureValue(),
		"custom_prompt": config.SystemPrompt != "",
		"version":       config.Version,
	})

	text, err := stage.Generate(ctx, c.generator, config, systemPrompt, inquiry.Message)
	if err != nil {
		fb := FallbackFor(config)
		c.fallback.Report(inquiry.Id, "generation failed", err, fb)
		return outcome.Ok(fb)
	}

	parsed, err := Parse(text)
	if err != nil {
		fb := FallbackFor(config)
		c.fallback.Report(inquiry.Id, "unparsable classification", err, fb)
		return outcome.Ok(fb)
	}

	c.logger.Info(module, "Inquiry classified", map[string]interface{}{
		"inquiry_id": inquiry.Id,
		"category":   parsed.Category,
		"urgency":    parsed.Urgency,
		"confidence": parsed.Confidence,
	})
	return outcome.Ok(parsed)
}

// FallbackFor is the result served when generation or parsing fails.
func FallbackFor(config entity.PromptConfig) entity.IntentResult {
	if config.TemperatureValue() < lowTemperatureThreshold {
		return entity.IntentResult{Category: entity.CategoryCritical, Urgency: entity.UrgencyHigh, Confidence: criticalConfidence}
	}
	return entity.IntentResult{Category: entity.CategoryFeature, Urgency: entity.UrgencyMedium, Confidence: defaultParsedConfidence}
}

type classification struct {
	Category   interface{} `json:"category"`
	Urgency    interface{} `json:"urgency"`
	Confidence interface{} `json:"confidence"`
}

// Parse reads a classification out of raw model output. Output without a JSON
// object yields the low-confidence default; a JSON object that does not parse
// returns an error.
func Parse(text string) (entity.IntentResult, error) {
	raw, ok := stage.ExtractJSONObject(text)
	if !ok {
		return entity.IntentResult{Category: entity.CategoryFeature, Urgency: entity.UrgencyMedium, Confidence: noJSONConfidence}, nil
	}

	var c classification
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return entity.IntentResult{}, err
	}

	return entity.IntentResult{
		Category:   stringOr(c.Category, entity.CategoryFeature),
		Urgency:    stringOr(c.Urgency, entity.UrgencyMedium),
		Confidence: confidenceOr(c.Confidence, defaultParsedConfidence),
	}, nil
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func confidenceOr(v interface{}, fallback float64) float64 {
	f, ok := v.(float64)
	if !ok || f == 0 {
		return fallback
	}
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
