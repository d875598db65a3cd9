// Package promptconfig turns flag values into stage configurations.
package promptconfig

import (
	"fmt"

	"support-flow-be/internal/entity"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

const DefaultModel = "gpt-4"

var validate = validator.New()

// Defaults maps each stage flag key to the config served when the flag
// cannot be resolved.
type Defaults struct {
	byKey map[string]entity.PromptConfig
}

func NewDefaults(intentKey, retrievalKey, responseKey string) *Defaults {
	return &Defaults{byKey: map[string]entity.PromptConfig{
		intentKey: {
			Model:        DefaultModel,
			Temperature:  float(0.7),
			SystemPrompt: "Classify customer inquiries",
		},
		retrievalKey: {
			Model:       DefaultModel,
			Temperature: float(0.3),
			Strategy:    entity.StrategyStandard,
		},
		responseKey: {
			Model:       DefaultModel,
			Temperature: float(0.8),
			Strategy:    entity.StrategyText,
		},
	}}
}

// For returns a fresh copy of the default for key. Unknown keys get a
// neutral config.
func (d *Defaults) For(key string) entity.PromptConfig {
	cfg, ok := d.byKey[key]
	if !ok {
		return entity.PromptConfig{Model: DefaultModel, Temperature: float(0.5)}
	}
	return Clone(cfg)
}

// Decode converts a JSON flag value into a validated PromptConfig. Numbers
// served as strings are accepted.
func Decode(value interface{}) (entity.PromptConfig, error) {
	if value == nil {
		return entity.PromptConfig{}, fmt.Errorf("empty flag value")
	}

	var cfg entity.PromptConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return entity.PromptConfig{}, err
	}
	if err := decoder.Decode(value); err != nil {
		return entity.PromptConfig{}, fmt.Errorf("decode prompt config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return entity.PromptConfig{}, fmt.Errorf("invalid prompt config: %w", err)
	}
	return cfg, nil
}

func Clone(cfg entity.PromptConfig) entity.PromptConfig {
	if cfg.Temperature != nil {
		cfg.Temperature = float(*cfg.Temperature)
	}
	return cfg
}

func float(v float64) *float64 { return &v }
