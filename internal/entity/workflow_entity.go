package entity

// PromptConfig is the per-stage configuration served by a flag.
type PromptConfig struct {
	Model        string   `json:"model" mapstructure:"model" validate:"required"`
	Temperature  *float64 `json:"temperature" mapstructure:"temperature" validate:"required,gte=0,lte=1"`
	SystemPrompt string   `json:"systemPrompt,omitempty" mapstructure:"systemPrompt"`
	Strategy     string   `json:"strategy,omitempty" mapstructure:"strategy"`
	Version      string   `json:"version,omitempty" mapstructure:"version"`
	MaxTokens    int      `json:"maxTokens,omitempty" mapstructure:"maxTokens" validate:"gte=0"`
}

// TemperatureValue returns the configured temperature, or 0 when unset.
func (c PromptConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return 0
	}
	return *c.Temperature
}

const (
	CategoryCritical    = "CRITICAL"
	CategoryFeature     = "FEATURE"
	CategoryIntegration = "INTEGRATION"
	CategoryQuick       = "QUICK"

	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"

	StrategyRAG        = "rag"
	StrategyStandard   = "standard"
	StrategyStructured = "structured"
	StrategyText       = "text"

	FormatText       = "text"
	FormatStructured = "structured"
)

type IntentResult struct {
	Category   string  `json:"category"`
	Urgency    string  `json:"urgency"`
	Confidence float64 `json:"confidence"`
}

type RetrievalResult struct {
	Documents []string `json:"documents"`
	Sources   []string `json:"sources"`
}

type ResponseResult struct {
	Message string `json:"message"`
	Format  string `json:"format"`
}

// StageConfigs records which configuration each stage ran with.
type StageConfigs struct {
	Intent    PromptConfig `json:"intent"`
	Retrieval PromptConfig `json:"retrieval"`
	Response  PromptConfig `json:"response"`
}

type StageTimings struct {
	IntentMs    int64 `json:"intentMs"`
	RetrievalMs int64 `json:"retrievalMs"`
	ResponseMs  int64 `json:"responseMs"`
}

// WorkflowResult only exists when all three stages succeeded.
type WorkflowResult struct {
	InquiryId string          `json:"inquiryId"`
	Combo     string          `json:"combo"`
	Intent    IntentResult    `json:"intent"`
	Retrieval RetrievalResult `json:"retrieval"`
	Response  ResponseResult  `json:"response"`
	ElapsedMs int64           `json:"elapsedMs"`
	Timings   StageTimings    `json:"timings"`
	Configs   StageConfigs    `json:"configs"`
}
